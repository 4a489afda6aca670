// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package editbatch applies a batch of HWID database edits read from a
// JSONC file (JSON extended with comments and trailing commas).
//
// A batch is applied all or nothing: [Apply] edits a clone of the
// database and returns the clone only when every operation succeeded.
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes -> Batch
//  2. Validate: structural checks (known op names, required fields)
//  3. Apply: run the operations against a clone of the database
package editbatch

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Operation names.
const (
	OpAddComponent              = "add_component"
	OpSetComponentStatus        = "set_component_status"
	OpSetLinkAVL                = "set_link_avl"
	OpSetBundleUUIDs            = "set_bundle_uuids"
	OpUpdateComponent           = "update_component"
	OpAddImage                  = "add_image"
	OpAppendEncodedFieldBit     = "append_encoded_field_bit"
	OpAddEncodedField           = "add_encoded_field"
	OpAddEncodedFieldComponents = "add_encoded_field_components"
	OpAddDeviceInfoRule         = "add_device_info_rule"
	OpRenameImages              = "rename_images"
	OpSetFrameworkVersion       = "set_framework_version"
)

// Batch is an ordered list of edits.
type Batch struct {
	// Description is free text recorded with snapshots taken before
	// the batch is applied.
	Description string      `json:"description,omitempty"`
	Operations  []Operation `json:"operations"`
}

// Operation is one edit. Op selects the edit; each edit reads only the
// fields it needs (see [Validate]).
type Operation struct {
	Op string `json:"op"`

	// Component edits.
	Class       string            `json:"class,omitempty"`
	Name        string            `json:"name,omitempty"`
	NewName     string            `json:"new_name,omitempty"`
	Values      map[string]string `json:"values,omitempty"`
	RegexValues map[string]string `json:"regex_values,omitempty"`
	Default     bool              `json:"default,omitempty"`
	Status      string            `json:"status,omitempty"`
	Information map[string]string `json:"information,omitempty"`
	BundleUUIDs []string          `json:"bundle_uuids,omitempty"`
	// NewBundle appends a freshly generated bundle UUID.
	NewBundle bool   `json:"new_bundle,omitempty"`
	Converter string `json:"converter,omitempty"`
	Matched   bool   `json:"probe_value_matched,omitempty"`

	// Image and pattern edits.
	ImageID          *int   `json:"image_id,omitempty"`
	ImageName        string `json:"image_name,omitempty"`
	EncodingScheme   string `json:"encoding_scheme,omitempty"`
	NewPattern       bool   `json:"new_pattern,omitempty"`
	ReferenceImageID *int   `json:"reference_image_id,omitempty"`
	PatternIndex     *int   `json:"pattern_index,omitempty"`
	// Images maps image ids (as JSON object keys) to new names.
	Images map[string]string `json:"images,omitempty"`

	// Encoded field edits.
	Field      string              `json:"field,omitempty"`
	BitLength  int                 `json:"bit_length,omitempty"`
	Components map[string][]string `json:"components,omitempty"`
	Index      *int                `json:"index,omitempty"`

	// Rule edits.
	Suffix    string   `json:"suffix,omitempty"`
	Evaluate  []string `json:"evaluate,omitempty"`
	When      string   `json:"when,omitempty"`
	Otherwise []string `json:"otherwise,omitempty"`
	Position  *int     `json:"position,omitempty"`

	FrameworkVersion int `json:"framework_version,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Batch.
func Parse(data []byte) (*Batch, error) {
	stripped := jsonc.ToJSON(data)

	var batch Batch
	if err := json.Unmarshal(stripped, &batch); err != nil {
		return nil, fmt.Errorf("parsing edit batch: %w", err)
	}

	return &batch, nil
}

// ReadFile reads and parses a JSONC batch file.
func ReadFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	batch, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return batch, nil
}
