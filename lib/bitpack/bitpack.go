// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bitpack converts between a device's component selection and
// the component bit string of an HWID, using the bit mapping of the
// pattern bound to the device's image id.
//
// A bit string is a sequence of '0' and '1' characters, most
// significant position first. Decoding accepts bit strings shorter
// than the current pattern: identifiers minted before a field was
// widened carry fewer bits, and [hwiddb.Database.GetBitMappingTruncated]
// reproduces the layout they were minted under.
package bitpack

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

// ErrCannotEncode is returned by [Encode] for a database whose
// CanEncode flag is false.
var ErrCannotEncode = errors.New("database contains ambiguous entries and cannot mint new identifiers")

// Selection lists the components present on a device, per component
// class. A class mapped to an empty list is explicitly absent.
type Selection map[string][]string

// Decoded is the result of [Decode].
type Decoded struct {
	// Indices is the index of every field of the pattern.
	Indices map[string]int
	// Components is the union of the combinations the indices encode.
	Components Selection
}

// Encode returns the component bit string of selection under the
// pattern of imageID. Every field of the pattern is encoded; a class
// missing from selection is treated as absent. Classes in selection
// that no field of the pattern encodes are an error.
func Encode(db *hwiddb.Database, imageID int, selection Selection) (string, error) {
	if !db.CanEncode() {
		return "", ErrCannotEncode
	}
	selector := hwiddb.ByImageID(imageID)
	fieldNames, err := db.GetPatternFieldNames(selector)
	if err != nil {
		return "", fmt.Errorf("resolving pattern of image %d: %w", imageID, err)
	}
	bitLengths, err := db.GetEncodedFieldsBitLength(selector)
	if err != nil {
		return "", fmt.Errorf("resolving pattern of image %d: %w", imageID, err)
	}

	covered := map[string]bool{}
	indices := make(map[string]int, len(fieldNames))
	for _, field := range fieldNames {
		classes, err := db.GetComponentClassesOfField(field)
		if err != nil {
			return "", err
		}
		combination := hwiddb.Combination{}
		for _, class := range classes {
			combination[class] = selection[class]
			covered[class] = true
		}
		index, err := db.FindEncodedFieldIndex(field, combination)
		if err != nil {
			return "", fmt.Errorf("encoding field %s: %w", field, err)
		}
		if index >= 1<<bitLengths[field] {
			return "", fmt.Errorf("encoding field %s: index %d does not fit in %d bits of image %d",
				field, index, bitLengths[field], imageID)
		}
		indices[field] = index
	}
	for _, class := range slices.Sorted(maps.Keys(selection)) {
		if !covered[class] {
			return "", fmt.Errorf("component class %s is not encoded by any field of image %d", class, imageID)
		}
	}

	mapping, err := db.GetBitMapping(selector)
	if err != nil {
		return "", err
	}
	var bits strings.Builder
	bits.Grow(len(mapping))
	for _, entry := range mapping {
		if indices[entry.Field]>>entry.Offset&1 == 1 {
			bits.WriteByte('1')
		} else {
			bits.WriteByte('0')
		}
	}
	return bits.String(), nil
}

// Decode recovers the field indices and components of a bit string
// minted for imageID. The bit string may be shorter than the current
// pattern but never longer.
func Decode(db *hwiddb.Database, imageID int, bits string) (Decoded, error) {
	selector := hwiddb.ByImageID(imageID)
	total, err := db.GetTotalBitLength(selector)
	if err != nil {
		return Decoded{}, fmt.Errorf("resolving pattern of image %d: %w", imageID, err)
	}
	if len(bits) > total {
		return Decoded{}, fmt.Errorf("bit string has %d bits but the pattern of image %d has only %d", len(bits), imageID, total)
	}
	mapping, err := db.GetBitMappingTruncated(selector, len(bits))
	if err != nil {
		return Decoded{}, err
	}
	fieldNames, err := db.GetPatternFieldNames(selector)
	if err != nil {
		return Decoded{}, err
	}

	decoded := Decoded{Indices: make(map[string]int, len(fieldNames)), Components: Selection{}}
	for _, field := range fieldNames {
		decoded.Indices[field] = 0
	}
	for position, entry := range mapping {
		switch bits[position] {
		case '1':
			decoded.Indices[entry.Field] |= 1 << entry.Offset
		case '0':
		default:
			return Decoded{}, fmt.Errorf("bit string has %q at position %d", bits[position], position)
		}
	}

	for _, field := range fieldNames {
		combination, err := db.GetEncodedFieldCombination(field, decoded.Indices[field])
		if err != nil {
			return Decoded{}, fmt.Errorf("decoding field %s: %w", field, err)
		}
		for class, names := range combination {
			decoded.Components[class] = append(decoded.Components[class], names...)
		}
	}
	return decoded, nil
}
