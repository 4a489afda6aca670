// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// ID is the content address of a snapshot: the BLAKE3 keyed hash of
// the uncompressed document.
type ID [32]byte

// snapshotDomainKey separates snapshot addresses from every other
// BLAKE3 use (component hashes in particular). ASCII, zero padded.
var snapshotDomainKey = [32]byte{
	'h', 'w', 'i', 'd', '.', 's', 'n', 'a', 'p', 's', 'h', 'o', 't',
}

// HashDocument computes the snapshot ID of a serialized document.
func HashDocument(document []byte) ID {
	hasher, err := blake3.NewKeyed(snapshotDomainKey[:])
	if err != nil {
		panic("snapshot: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(document)
	var id ID
	copy(id[:], hasher.Sum(nil))
	return id
}

// String returns the lowercase hex form of the ID.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first 12 hex digits, enough to name a snapshot in
// listings and to pass back to [Store.Resolve].
func (id ID) Short() string { return id.String()[:12] }

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == ID{} }

// ParseID parses the full 64-digit hex form of an ID.
func ParseID(text string) (ID, error) {
	var id ID
	if len(text) != hex.EncodedLen(len(id)) {
		return ID{}, fmt.Errorf("snapshot id %q: want %d hex digits, got %d", text, hex.EncodedLen(len(id)), len(text))
	}
	if _, err := hex.Decode(id[:], []byte(text)); err != nil {
		return ID{}, fmt.Errorf("snapshot id %q: %w", text, err)
	}
	return id, nil
}
