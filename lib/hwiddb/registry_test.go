// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"slices"
	"testing"
)

func TestImageIDRegistry(t *testing.T) {
	t.Parallel()

	images := NewImageID()
	for key, name := range map[int]string{0: "PROTO", 3: "DVT", 15: "RMA"} {
		if err := images.Set(key, name); err != nil {
			t.Fatalf("Set(%d, %s): %v", key, name, err)
		}
	}

	requireKind(t, images.Set(3, "PVT"), KindDuplicate)
	requireKind(t, images.Set(4, "DVT"), KindDuplicate)
	requireKind(t, images.Set(16, "FUTURE"), KindOutOfRange)
	requireKind(t, images.Set(-1, "PAST"), KindOutOfRange)
	requireKind(t, images.Set(5, ""), KindMalformed)
	requireKind(t, images.Delete(0), KindInvariant)

	if got := images.Keys(); !slices.Equal(got, []int{0, 3, 15}) {
		t.Errorf("Keys: got %v, want [0 3 15]", got)
	}
	if got, ok := images.MaxImageID(); !ok || got != 3 {
		t.Errorf("MaxImageID: got (%d, %v), want (3, true)", got, ok)
	}
	if got, ok := images.RMAImageID(); !ok || got != 15 {
		t.Errorf("RMAImageID: got (%d, %v), want (15, true)", got, ok)
	}
	if got, err := images.GetImageIDByName("DVT"); err != nil || got != 3 {
		t.Errorf("GetImageIDByName(DVT): got (%d, %v), want 3", got, err)
	}
	_, err := images.Get(7)
	requireKind(t, err, KindNotFound)
	_, err = images.GetImageIDByName("EVT")
	requireKind(t, err, KindNotFound)
}

func TestImageIDWithoutRMA(t *testing.T) {
	t.Parallel()

	images := NewImageID()
	if _, ok := images.MaxImageID(); ok {
		t.Error("MaxImageID reported a value for an empty registry")
	}
	if err := images.Set(15, "RMA"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := images.MaxImageID(); ok {
		t.Error("MaxImageID counted the RMA image id")
	}
	if _, ok := NewImageID().RMAImageID(); ok {
		t.Error("RMAImageID reported a value for an empty registry")
	}
}

func TestEncodingPatternsDomain(t *testing.T) {
	t.Parallel()

	patterns := NewEncodingPatterns()
	if err := patterns.Set(0, "default"); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	requireKind(t, patterns.Set(1, "other"), KindOutOfRange)
	requireKind(t, patterns.Set(0, "again"), KindDuplicate)
	if patterns.Len() != 1 {
		t.Errorf("Len: got %d, want 1", patterns.Len())
	}
}
