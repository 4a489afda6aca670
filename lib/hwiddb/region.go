// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import "slices"

// RegionClass is the component class populated by "!region_component"
// and encoded by "!region_field".
const RegionClass = "region"

// regionPayload records how a region-generated field or class was
// declared so it can be written back the same way. A legacy
// declaration carries no list of its own and takes the externally
// supplied region list instead.
type regionPayload struct {
	codes  []string
	legacy bool
}

func newRegionPayload(codes []string, legacy bool) *regionPayload {
	return &regionPayload{codes: slices.Clone(codes), legacy: legacy}
}

func (r *regionPayload) clone() *regionPayload {
	if r == nil {
		return nil
	}
	return newRegionPayload(r.codes, r.legacy)
}

// regionFieldCombinations expands a region field: index 0 encodes "no
// region", index i+1 encodes the i-th region code.
func regionFieldCombinations(codes []string) []IndexedCombination {
	result := make([]IndexedCombination, 0, len(codes)+1)
	result = append(result, IndexedCombination{Index: 0, Combination: Combination{RegionClass: nil}})
	for position, code := range codes {
		result = append(result, IndexedCombination{
			Index:       position + 1,
			Combination: Combination{RegionClass: {code}},
		})
	}
	return result
}

// regionComponentValues is the probe specification of a generated
// region component.
func regionComponentValues(code string) Values {
	return PlainValues{Probes: ProbeValues{"region_code": Literal(code)}}
}
