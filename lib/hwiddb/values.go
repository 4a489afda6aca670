// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"fmt"
	"maps"
	"slices"
)

// Expected is the expected value of one probe key. Text is matched
// literally unless Regex is set, in which case it is a regular
// expression (the "!re" tag in the document).
type Expected struct {
	Text  string
	Regex bool
}

// Literal returns a literal expected value.
func Literal(text string) Expected {
	return Expected{Text: text}
}

// Regexp returns a regular-expression expected value.
func Regexp(pattern string) Expected {
	return Expected{Text: pattern, Regex: true}
}

// ProbeValues maps probe keys to their expected values.
type ProbeValues map[string]Expected

// Keys returns the probe keys in sorted order.
func (p ProbeValues) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Equal reports whether both maps hold the same keys and expected values.
func (p ProbeValues) Equal(other ProbeValues) bool {
	return maps.Equal(p, other)
}

func (p ProbeValues) clone() ProbeValues {
	if p == nil {
		return ProbeValues{}
	}
	return maps.Clone(p)
}

// Values is the probe-match specification of a component. It is a
// closed sum type: every value is exactly one of [NoneValues],
// [PlainValues] or [LinkedCatalogValues]. Consumers switch over the
// concrete type; the unexported marker method keeps other packages
// from adding variants.
type Values interface {
	isValues()
}

// NoneValues marks a default component: a placeholder for a part that
// is not (yet) probeable. At most one component per class should carry
// it.
type NoneValues struct{}

// PlainValues is an ordinary probe-match specification.
type PlainValues struct {
	Probes ProbeValues
}

// LinkedCatalogValues is a probe-match specification that was linked
// against an external component catalog ("!link_avl" in the
// document). Converter identifies the conversion that produced Probes
// and Matched records whether the catalog entry matched them. The link
// is provenance only: it never changes which probe results match.
type LinkedCatalogValues struct {
	Converter string
	Matched   bool
	Probes    ProbeValues
}

func (NoneValues) isValues()          {}
func (PlainValues) isValues()         {}
func (LinkedCatalogValues) isValues() {}

// Plain returns PlainValues for the given literal probe values.
func Plain(probes map[string]string) PlainValues {
	values := PlainValues{Probes: make(ProbeValues, len(probes))}
	for key, text := range probes {
		values.Probes[key] = Literal(text)
	}
	return values
}

// ProbesOf returns the probe map of values and true, or nil and false
// for [NoneValues].
func ProbesOf(values Values) (ProbeValues, bool) {
	canonical, ok := canonicalValues(values)
	if !ok {
		panic(fmt.Sprintf("hwiddb: unknown Values variant %T", values))
	}
	switch typed := canonical.(type) {
	case PlainValues:
		return typed.Probes, true
	case LinkedCatalogValues:
		return typed.Probes, true
	}
	return nil, false
}

// IsNone reports whether values is the default-component sentinel.
func IsNone(values Values) bool {
	_, ok := ProbesOf(values)
	return !ok
}

// SameProbes reports whether two values match exactly the same probe
// results. Catalog links are ignored; this is the comparison used for
// duplicate detection.
func SameProbes(a, b Values) bool {
	probesA, okA := ProbesOf(a)
	probesB, okB := ProbesOf(b)
	if okA != okB {
		return false
	}
	return !okA || probesA.Equal(probesB)
}

func valuesEqual(a, b Values) bool {
	switch typedA := normalizeValues(a).(type) {
	case NoneValues:
		_, ok := normalizeValues(b).(NoneValues)
		return ok
	case PlainValues:
		typedB, ok := normalizeValues(b).(PlainValues)
		return ok && typedA.Probes.Equal(typedB.Probes)
	case LinkedCatalogValues:
		typedB, ok := normalizeValues(b).(LinkedCatalogValues)
		return ok && typedA.Converter == typedB.Converter &&
			typedA.Matched == typedB.Matched && typedA.Probes.Equal(typedB.Probes)
	default:
		panic(fmt.Sprintf("hwiddb: unknown Values variant %T", a))
	}
}

// canonicalValues maps the pointer forms of the variants to their
// values; nil and nil pointers become NoneValues. ok is false for any
// other type, such as a struct embedding one of the variants.
func canonicalValues(values Values) (Values, bool) {
	switch typed := values.(type) {
	case nil, NoneValues, *NoneValues:
		return NoneValues{}, true
	case PlainValues, LinkedCatalogValues:
		return typed, true
	case *PlainValues:
		if typed == nil {
			return NoneValues{}, true
		}
		return *typed, true
	case *LinkedCatalogValues:
		if typed == nil {
			return NoneValues{}, true
		}
		return *typed, true
	default:
		return nil, false
	}
}

// normalizeValues maps nil to NoneValues and copies probe maps so that
// a ComponentInfo never aliases caller-owned maps.
func normalizeValues(values Values) Values {
	canonical, ok := canonicalValues(values)
	if !ok {
		panic(fmt.Sprintf("hwiddb: unknown Values variant %T", values))
	}
	switch typed := canonical.(type) {
	case NoneValues:
		return NoneValues{}
	case PlainValues:
		return PlainValues{Probes: typed.Probes.clone()}
	case LinkedCatalogValues:
		return LinkedCatalogValues{
			Converter: typed.Converter,
			Matched:   typed.Matched,
			Probes:    typed.Probes.clone(),
		}
	default:
		panic(fmt.Sprintf("hwiddb: unknown Values variant %T", values))
	}
}

// exportProbes returns the serializable form of a probe map. Regex
// values become {"re": pattern}. With sorted set, the result is a list
// of [key, value] pairs in key order instead of a map.
func exportProbes(probes ProbeValues, sorted bool) any {
	exportValue := func(expected Expected) any {
		if expected.Regex {
			return map[string]any{"re": expected.Text}
		}
		return expected.Text
	}
	if sorted {
		pairs := make([]any, 0, len(probes))
		for _, key := range probes.Keys() {
			pairs = append(pairs, []any{key, exportValue(probes[key])})
		}
		return pairs
	}
	result := make(map[string]any, len(probes))
	for key, expected := range probes {
		result[key] = exportValue(expected)
	}
	return result
}
