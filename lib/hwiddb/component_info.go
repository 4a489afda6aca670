// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"encoding/hex"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/hwid/lib/codec"
)

// Status is the support status of a component.
type Status string

const (
	StatusSupported   Status = "supported"
	StatusUnqualified Status = "unqualified"
	StatusDeprecated  Status = "deprecated"
	StatusUnsupported Status = "unsupported"
	// StatusDuplicate marks a component whose probe values deliberately
	// repeat another component's. Duplicate detection ignores it.
	StatusDuplicate Status = "duplicate"
)

// ParseStatus validates a status name.
func ParseStatus(name string) (Status, error) {
	switch status := Status(name); status {
	case StatusSupported, StatusUnqualified, StatusDeprecated, StatusUnsupported, StatusDuplicate:
		return status, nil
	default:
		return "", newError(KindMalformed, "unknown component status %q", name)
	}
}

// componentHashKey is the BLAKE3 key for component content hashes:
// the ASCII domain name zero-padded to 32 bytes.
var componentHashKey = [32]byte{
	'h', 'w', 'i', 'd', '.', 'c', 'o', 'm', 'p', 'o', 'n', 'e', 'n', 't',
}

// ComponentInfo describes one named hardware part. It is an immutable
// value: every change goes through [ComponentInfo.Replace], which
// builds a new instance with a freshly computed hash.
type ComponentInfo struct {
	values      Values
	status      Status
	information map[string]string
	bundleUUIDs []string
	hash        string
}

// NewComponentInfo builds a ComponentInfo. A nil values is the
// default-component sentinel; pointers to the variants are accepted
// and copied. Bundle UUIDs must parse as UUIDs; they
// are stored in canonical lower-case form as a sorted set.
func NewComponentInfo(values Values, status Status, information map[string]string, bundleUUIDs []string) (ComponentInfo, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return ComponentInfo{}, err
	}
	if _, ok := canonicalValues(values); !ok {
		return ComponentInfo{}, newError(KindMalformed, "unsupported component values type %T", values)
	}
	canonicalUUIDs, err := canonicalBundleUUIDs(bundleUUIDs)
	if err != nil {
		return ComponentInfo{}, err
	}
	info := ComponentInfo{
		values:      normalizeValues(values),
		status:      status,
		bundleUUIDs: canonicalUUIDs,
	}
	if len(information) > 0 {
		info.information = maps.Clone(information)
	}
	hash, err := hashExport(info.Export(ExportOptions{SortForHash: true}))
	if err != nil {
		return ComponentInfo{}, err
	}
	info.hash = hash
	return info, nil
}

func canonicalBundleUUIDs(bundleUUIDs []string) ([]string, error) {
	if len(bundleUUIDs) == 0 {
		return nil, nil
	}
	result := make([]string, 0, len(bundleUUIDs))
	for _, text := range bundleUUIDs {
		parsed, err := uuid.Parse(text)
		if err != nil {
			return nil, newError(KindMalformed, "invalid bundle uuid %q: %v", text, err)
		}
		result = append(result, parsed.String())
	}
	slices.Sort(result)
	return slices.Compact(result), nil
}

func hashExport(exported map[string]any) (string, error) {
	data, err := codec.Marshal(exported)
	if err != nil {
		return "", newError(KindMalformed, "encoding component for hashing: %v", err)
	}
	hasher, err := blake3.NewKeyed(componentHashKey[:])
	if err != nil {
		panic("hwiddb: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Values returns the probe-match specification.
func (c ComponentInfo) Values() Values {
	return normalizeValues(c.values)
}

// Status returns the support status.
func (c ComponentInfo) Status() Status { return c.status }

// Information returns a copy of the free-form metadata, or nil.
func (c ComponentInfo) Information() map[string]string {
	if c.information == nil {
		return nil
	}
	return maps.Clone(c.information)
}

// BundleUUIDs returns the sorted provenance bundle UUIDs.
func (c ComponentInfo) BundleUUIDs() []string {
	return slices.Clone(c.bundleUUIDs)
}

// Hash returns the hex content hash. Identical content always yields
// the identical hash regardless of construction order. Bundle UUIDs
// are provenance and do not contribute.
func (c ComponentInfo) Hash() string { return c.hash }

// IsDefault reports whether this is a default (unprobed) component.
func (c ComponentInfo) IsDefault() bool { return IsNone(c.values) }

// Equal compares values, status, information and bundle UUIDs (as a
// set). The hash is derived and not compared separately.
func (c ComponentInfo) Equal(other ComponentInfo) bool {
	return valuesEqual(c.values, other.values) &&
		c.status == other.status &&
		maps.Equal(c.information, other.information) &&
		slices.Equal(c.bundleUUIDs, other.bundleUUIDs)
}

// ExportOptions controls [ComponentInfo.Export].
type ExportOptions struct {
	// SuppressSupportStatus omits the status when it is "supported".
	SuppressSupportStatus bool
	// OverrideStatus replaces the exported status when non-empty.
	OverrideStatus Status
	// IsDefault adds "default": true.
	IsDefault bool
	// SortForHash produces the hashing form: probe values become a
	// key-sorted list of pairs and bundle UUIDs are left out.
	SortForHash bool
}

// Export returns the canonical serializable form of the component.
func (c ComponentInfo) Export(options ExportOptions) map[string]any {
	result := map[string]any{}
	if options.IsDefault {
		result["default"] = true
	}
	status := c.status
	if options.OverrideStatus != "" {
		status = options.OverrideStatus
	}
	if !options.SuppressSupportStatus || status != StatusSupported {
		result["status"] = string(status)
	}

	switch values := c.values.(type) {
	case NoneValues:
		result["values"] = nil
	case PlainValues:
		result["values"] = exportProbes(values.Probes, options.SortForHash)
	case LinkedCatalogValues:
		result["values"] = map[string]any{
			"converter":           values.Converter,
			"probe_value_matched": values.Matched,
			"original_values":     exportProbes(values.Probes, options.SortForHash),
		}
	}

	if len(c.information) > 0 {
		information := make(map[string]any, len(c.information))
		for key, value := range c.information {
			information[key] = value
		}
		result["information"] = information
	}
	if len(c.bundleUUIDs) > 0 && !options.SortForHash {
		result["bundle_uuids"] = slices.Clone(c.bundleUUIDs)
	}
	return result
}

// ReplaceOption overrides one field in [ComponentInfo.Replace].
type ReplaceOption func(*ComponentInfo)

// WithValues replaces the probe-match specification.
func WithValues(values Values) ReplaceOption {
	return func(info *ComponentInfo) { info.values = values }
}

// WithStatus replaces the support status.
func WithStatus(status Status) ReplaceOption {
	return func(info *ComponentInfo) { info.status = status }
}

// WithInformation replaces the metadata map.
func WithInformation(information map[string]string) ReplaceOption {
	return func(info *ComponentInfo) { info.information = information }
}

// WithBundleUUIDs replaces the provenance bundle UUIDs.
func WithBundleUUIDs(bundleUUIDs []string) ReplaceOption {
	return func(info *ComponentInfo) { info.bundleUUIDs = bundleUUIDs }
}

// Replace returns a new ComponentInfo with the given fields
// overridden. The receiver is never modified.
func (c ComponentInfo) Replace(options ...ReplaceOption) (ComponentInfo, error) {
	draft := c
	for _, option := range options {
		option(&draft)
	}
	return NewComponentInfo(draft.values, draft.status, draft.information, draft.bundleUUIDs)
}
