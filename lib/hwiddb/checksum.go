// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
)

// checksumLine matches the stored checksum line, including its line
// terminator when present.
var checksumLine = regexp.MustCompile(`(?m)^checksum:.*$\n?`)

// ChecksumForText returns the file checksum of a serialized document:
// the SHA-1 hex digest of the text with the checksum line removed.
// The digest algorithm is fixed by the document format.
func ChecksumForText(text []byte) string {
	digest := sha1.Sum(checksumLine.ReplaceAll(text, nil))
	return hex.EncodeToString(digest[:])
}

// ReplaceChecksum returns text with its checksum line set to the
// freshly computed checksum. A document without a checksum line gets
// one prepended.
func ReplaceChecksum(text []byte) []byte {
	line := []byte("checksum: " + ChecksumForText(text) + "\n")
	location := checksumLine.FindIndex(text)
	if location == nil {
		return append(line, text...)
	}
	result := make([]byte, 0, len(text)+len(line))
	result = append(result, text[:location[0]]...)
	result = append(result, line...)
	result = append(result, text[location[1]:]...)
	return result
}

// UpdateChecksumFile rewrites the checksum line of the document at path
// in place and returns the new checksum. Only the checksum line
// changes, so hand formatting and comments survive. The file is not
// parsed.
func UpdateChecksumFile(path string) (string, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading database %s: %w", path, err)
	}
	updated := ReplaceChecksum(text)
	if err := writeFileAtomic(path, updated); err != nil {
		return "", err
	}
	return ChecksumForText(updated), nil
}
