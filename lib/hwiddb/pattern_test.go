// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"slices"
	"testing"
)

func newTwoChunkPattern(t *testing.T) *Pattern {
	t.Helper()
	pattern := NewPattern()
	if err := pattern.AddEmptyPattern(0, SchemeBase8192); err != nil {
		t.Fatalf("AddEmptyPattern: %v", err)
	}
	for _, chunk := range []FieldChunk{
		{Name: "cpu", BitLength: 2},
		{Name: "region", BitLength: 3},
		{Name: "cpu", BitLength: 1},
		{Name: "storage", BitLength: 2},
	} {
		if err := pattern.AppendField(chunk.Name, chunk.BitLength, ByImageID(0)); err != nil {
			t.Fatalf("AppendField(%s, %d): %v", chunk.Name, chunk.BitLength, err)
		}
	}
	return pattern
}

func TestBitMappingCoverage(t *testing.T) {
	t.Parallel()

	pattern := newTwoChunkPattern(t)
	mapping, err := pattern.GetBitMapping(ByImageID(0))
	if err != nil {
		t.Fatalf("GetBitMapping: %v", err)
	}
	total, _ := pattern.GetTotalBitLength(ByImageID(0))
	if len(mapping) != total {
		t.Fatalf("mapping length: got %d, want %d", len(mapping), total)
	}

	lengths, _ := pattern.GetFieldsBitLength(ByImageID(0))
	offsets := map[string][]int{}
	for _, entry := range mapping {
		offsets[entry.Field] = append(offsets[entry.Field], entry.Offset)
	}
	for field, bitLength := range lengths {
		got := slices.Sorted(slices.Values(offsets[field]))
		want := make([]int, bitLength)
		for index := range want {
			want[index] = index
		}
		if !slices.Equal(got, want) {
			t.Errorf("offsets of %s: got %v, want %v", field, got, want)
		}
	}
}

func TestBitMappingOrder(t *testing.T) {
	t.Parallel()

	pattern := newTwoChunkPattern(t)
	mapping, err := pattern.GetBitMapping(ByPatternIndex(0))
	if err != nil {
		t.Fatalf("GetBitMapping: %v", err)
	}
	want := []BitEntry{
		{"cpu", 1}, {"cpu", 0},
		{"region", 2}, {"region", 1}, {"region", 0},
		{"cpu", 2},
		{"storage", 1}, {"storage", 0},
	}
	if !slices.Equal(mapping, want) {
		t.Errorf("mapping:\n got %v\nwant %v", mapping, want)
	}
}

func TestBitMappingTruncation(t *testing.T) {
	t.Parallel()

	pattern := newTwoChunkPattern(t)
	tests := []struct {
		name string
		max  int
		want []BitEntry
	}{
		{"zero", 0, []BitEntry{}},
		{"chunk boundary", 2, []BitEntry{{"cpu", 1}, {"cpu", 0}}},
		// The chunk crossing the limit behaves as a narrower chunk:
		// region emits offsets 1 and 0, not 2 and 1.
		{"mid chunk", 4, []BitEntry{{"cpu", 1}, {"cpu", 0}, {"region", 1}, {"region", 0}}},
		{"second cpu chunk", 6, []BitEntry{
			{"cpu", 1}, {"cpu", 0}, {"region", 2}, {"region", 1}, {"region", 0}, {"cpu", 2},
		}},
		{"beyond total", 100, []BitEntry{
			{"cpu", 1}, {"cpu", 0}, {"region", 2}, {"region", 1}, {"region", 0}, {"cpu", 2},
			{"storage", 1}, {"storage", 0},
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, err := pattern.GetBitMappingTruncated(ByImageID(0), test.max)
			if err != nil {
				t.Fatalf("GetBitMappingTruncated(%d): %v", test.max, err)
			}
			if !slices.Equal(got, test.want) {
				t.Errorf("GetBitMappingTruncated(%d):\n got %v\nwant %v", test.max, got, test.want)
			}
		})
	}

	_, err := pattern.GetBitMappingTruncated(ByImageID(0), -1)
	requireKind(t, err, KindOutOfRange)
}

func TestPatternSelectors(t *testing.T) {
	t.Parallel()

	pattern := NewPattern()
	if err := pattern.AddEmptyPattern(0, SchemeBase32); err != nil {
		t.Fatalf("AddEmptyPattern(0): %v", err)
	}
	if err := pattern.AddEmptyPattern(2, SchemeBase8192); err != nil {
		t.Fatalf("AddEmptyPattern(2): %v", err)
	}
	if err := pattern.AddImageID(15, ByPatternIndex(0)); err != nil {
		t.Fatalf("AddImageID(15): %v", err)
	}

	// The RMA image id is never the latest.
	scheme, err := pattern.GetEncodingScheme(Selector{})
	if err != nil {
		t.Fatalf("GetEncodingScheme(latest): %v", err)
	}
	if scheme != SchemeBase8192 {
		t.Errorf("latest scheme: got %s, want %s", scheme, SchemeBase8192)
	}
	if index, _ := pattern.PatternIndex(ByImageID(15)); index != 0 {
		t.Errorf("pattern of image 15: got %d, want 0", index)
	}
	if got := pattern.ImageIDs(); !slices.Equal(got, []int{0, 2, 15}) {
		t.Errorf("ImageIDs: got %v", got)
	}

	_, err = pattern.GetEncodingScheme(ByImageID(7))
	requireKind(t, err, KindNotFound)
	_, err = pattern.GetEncodingScheme(ByPatternIndex(2))
	requireKind(t, err, KindNotFound)
}

func TestAddImageIDTwiceFails(t *testing.T) {
	t.Parallel()

	pattern := NewPattern()
	if err := pattern.AddEmptyPattern(0, SchemeBase8192); err != nil {
		t.Fatalf("AddEmptyPattern: %v", err)
	}
	if err := pattern.AddImageID(1, ByImageID(0)); err != nil {
		t.Fatalf("first AddImageID: %v", err)
	}
	requireKind(t, pattern.AddImageID(1, ByImageID(0)), KindDuplicate)
	requireKind(t, pattern.AddEmptyPattern(1, SchemeBase8192), KindDuplicate)
	requireKind(t, pattern.AddImageID(2, Selector{}), KindMalformed)
	requireKind(t, pattern.AddImageID(16, ByImageID(0)), KindOutOfRange)
}

func TestAppendFieldValidation(t *testing.T) {
	t.Parallel()

	pattern := NewPattern()
	if err := pattern.AddEmptyPattern(0, SchemeBase8192); err != nil {
		t.Fatalf("AddEmptyPattern: %v", err)
	}
	requireKind(t, pattern.AppendField("cpu", 0, ByImageID(0)), KindOutOfRange)
	requireKind(t, pattern.AppendField("", 1, ByImageID(0)), KindMalformed)
	requireKind(t, pattern.AppendField("cpu", 1, ByImageID(3)), KindNotFound)
	requireKind(t, pattern.AddEmptyPattern(1, "base64"), KindMalformed)
}
