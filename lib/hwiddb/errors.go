// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an invalid database operation. All kinds are
// hard failures; the kind only tells callers which precondition was
// violated.
type ErrorKind int

const (
	// KindInvariant is a violated cross-entity or shape invariant.
	KindInvariant ErrorKind = iota
	// KindNotFound is an unknown field, class, component, image id or
	// pattern.
	KindNotFound
	// KindDuplicate is an insertion of a key or name that already exists.
	KindDuplicate
	// KindOutOfRange is a numeric value outside its allowed domain.
	KindOutOfRange
	// KindMalformed is input with the wrong shape or type.
	KindMalformed
	// KindChecksumMismatch is a file checksum that does not verify.
	KindChecksumMismatch
)

// String returns the human-readable name of an error kind.
func (kind ErrorKind) String() string {
	switch kind {
	case KindInvariant:
		return "invariant"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindOutOfRange:
		return "out_of_range"
	case KindMalformed:
		return "malformed"
	case KindChecksumMismatch:
		return "checksum_mismatch"
	default:
		return fmt.Sprintf("unknown(%d)", int(kind))
	}
}

// Error is the single hard-failure type of the engine: an invalid
// database operation. Callers can use errors.As to extract it:
//
//	var dbErr *hwiddb.Error
//	if errors.As(err, &dbErr) && dbErr.Kind == hwiddb.KindDuplicate { ... }
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return "invalid hwid database operation: " + e.Message
}

// IsInvalidOperation reports whether err is (or wraps) an [*Error].
func IsInvalidOperation(err error) bool {
	var dbErr *Error
	return errors.As(err, &dbErr)
}

// KindOf returns the kind of an [*Error] wrapped in err.
func KindOf(err error) (ErrorKind, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Kind, true
	}
	return 0, false
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
