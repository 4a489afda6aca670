// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"maps"
	"slices"
)

const (
	// MaxImageIDValue is the largest representable image id.
	MaxImageIDValue = 15
	// ReservedRMAImageID is the image id reserved for the RMA pattern.
	ReservedRMAImageID = MaxImageIDValue
)

// numberedRegistry is an append-only bijection between small integer
// keys in [low, high] and names. Entries can be added but never updated
// or removed.
type numberedRegistry struct {
	kind      string
	low, high int
	byKey     map[int]string
	byName    map[string]int
}

func newNumberedRegistry(kind string, low, high int) numberedRegistry {
	return numberedRegistry{
		kind:   kind,
		low:    low,
		high:   high,
		byKey:  map[int]string{},
		byName: map[string]int{},
	}
}

// Get returns the name bound to key.
func (r *numberedRegistry) Get(key int) (string, error) {
	name, ok := r.byKey[key]
	if !ok {
		return "", newError(KindNotFound, "%s %d is not defined", r.kind, key)
	}
	return name, nil
}

// Has reports whether key is bound.
func (r *numberedRegistry) Has(key int) bool {
	_, ok := r.byKey[key]
	return ok
}

// Set binds key to name. Both must be unused and key must lie in the
// registry's range.
func (r *numberedRegistry) Set(key int, name string) error {
	if err := r.check(key, name); err != nil {
		return err
	}
	r.byKey[key] = name
	r.byName[name] = key
	return nil
}

// check validates a prospective Set without applying it.
func (r *numberedRegistry) check(key int, name string) error {
	if key < r.low || key > r.high {
		return newError(KindOutOfRange, "%s %d is out of range [%d, %d]", r.kind, key, r.low, r.high)
	}
	if name == "" {
		return newError(KindMalformed, "%s %d must have a non-empty name", r.kind, key)
	}
	if existing, ok := r.byKey[key]; ok {
		return newError(KindDuplicate, "%s %d is already bound to %q", r.kind, key, existing)
	}
	if existing, ok := r.byName[name]; ok {
		return newError(KindDuplicate, "%s name %q is already used by %d", r.kind, name, existing)
	}
	return nil
}

// Delete always fails: the registry is append-only.
func (r *numberedRegistry) Delete(key int) error {
	return newError(KindInvariant, "%s entries cannot be removed (tried %d)", r.kind, key)
}

// Keys returns the bound keys in ascending order.
func (r *numberedRegistry) Keys() []int {
	return slices.Sorted(maps.Keys(r.byKey))
}

// Len returns the number of entries.
func (r *numberedRegistry) Len() int {
	return len(r.byKey)
}

// Entries returns a copy of the key -> name map.
func (r *numberedRegistry) Entries() map[int]string {
	return maps.Clone(r.byKey)
}

func (r *numberedRegistry) clone() numberedRegistry {
	return numberedRegistry{
		kind:   r.kind,
		low:    r.low,
		high:   r.high,
		byKey:  maps.Clone(r.byKey),
		byName: maps.Clone(r.byName),
	}
}

// ImageID names the build phases of a product. Keys are 0..15 and 15
// is reserved for the RMA image.
type ImageID struct {
	numberedRegistry
}

// NewImageID returns an empty image id registry.
func NewImageID() *ImageID {
	return &ImageID{newNumberedRegistry("image id", 0, MaxImageIDValue)}
}

// GetImageIDByName returns the image id bound to name.
func (i *ImageID) GetImageIDByName(name string) (int, error) {
	key, ok := i.byName[name]
	if !ok {
		return 0, newError(KindNotFound, "image name %q is not defined", name)
	}
	return key, nil
}

// MaxImageID returns the largest image id other than the reserved RMA
// id.
func (i *ImageID) MaxImageID() (int, bool) {
	result, found := 0, false
	for key := range i.byKey {
		if key != ReservedRMAImageID && (!found || key > result) {
			result, found = key, true
		}
	}
	return result, found
}

// RMAImageID returns the reserved RMA image id if it is bound.
func (i *ImageID) RMAImageID() (int, bool) {
	if i.Has(ReservedRMAImageID) {
		return ReservedRMAImageID, true
	}
	return 0, false
}

func (i *ImageID) clone() *ImageID {
	return &ImageID{i.numberedRegistry.clone()}
}

// EncodingPatterns names the encoding patterns. The only valid key is 0.
type EncodingPatterns struct {
	numberedRegistry
}

// NewEncodingPatterns returns an empty encoding pattern registry.
func NewEncodingPatterns() *EncodingPatterns {
	return &EncodingPatterns{newNumberedRegistry("encoding pattern", 0, 0)}
}

func (e *EncodingPatterns) clone() *EncodingPatterns {
	return &EncodingPatterns{e.numberedRegistry.clone()}
}
