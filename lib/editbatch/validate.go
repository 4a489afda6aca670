// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package editbatch

import (
	"fmt"
	"strconv"
)

// Validate checks a Batch for structural issues. Returns a list of
// human-readable issue descriptions. An empty list means the batch is
// well formed; it may still fail against a particular database.
//
// Structural checks include:
//   - At least one operation is required
//   - Each operation names a known op
//   - Each operation sets the fields its op requires
//   - Component values are either default or non-empty probe values
//   - At most one of reference_image_id and pattern_index is set
//   - rename_images keys are integers
func Validate(batch *Batch) []string {
	var issues []string

	if len(batch.Operations) == 0 {
		issues = append(issues, "batch has no operations (at least one operation is required)")
	}

	for index, operation := range batch.Operations {
		prefix := fmt.Sprintf("operations[%d] %q", index, operation.Op)
		for _, issue := range validateOperation(operation) {
			issues = append(issues, prefix+": "+issue)
		}
	}
	return issues
}

func validateOperation(operation Operation) []string {
	var issues []string
	require := func(set bool, field string) {
		if !set {
			issues = append(issues, field+" is required")
		}
	}

	switch operation.Op {
	case OpAddComponent:
		require(operation.Class != "", "class")
		require(operation.Name != "", "name")
		issues = append(issues, validateValues(operation)...)
	case OpUpdateComponent:
		require(operation.Class != "", "class")
		require(operation.Name != "", "name")
		issues = append(issues, validateValues(operation)...)
	case OpSetComponentStatus:
		require(operation.Class != "", "class")
		require(operation.Name != "", "name")
		require(operation.Status != "", "status")
	case OpSetLinkAVL:
		require(operation.Class != "", "class")
		require(operation.Name != "", "name")
		require(operation.Converter != "", "converter")
	case OpSetBundleUUIDs:
		require(operation.Class != "", "class")
		require(operation.Name != "", "name")
	case OpAddImage:
		require(operation.ImageID != nil, "image_id")
		require(operation.ImageName != "", "image_name")
		require(operation.EncodingScheme != "", "encoding_scheme")
		if operation.NewPattern && (operation.ReferenceImageID != nil || operation.PatternIndex != nil) {
			issues = append(issues, "new_pattern cannot be combined with reference_image_id or pattern_index")
		}
		issues = append(issues, validateSelector(operation)...)
	case OpAppendEncodedFieldBit:
		require(operation.Field != "", "field")
		require(operation.BitLength > 0, "bit_length (positive)")
		if operation.ImageID != nil && (operation.ReferenceImageID != nil || operation.PatternIndex != nil) {
			issues = append(issues, "image_id cannot be combined with reference_image_id or pattern_index")
		}
		issues = append(issues, validateSelector(operation)...)
	case OpAddEncodedField, OpAddEncodedFieldComponents:
		require(operation.Field != "", "field")
		require(len(operation.Components) > 0, "components")
	case OpAddDeviceInfoRule:
		require(operation.Suffix != "", "suffix")
		require(len(operation.Evaluate) > 0, "evaluate")
	case OpRenameImages:
		require(len(operation.Images) > 0, "images")
		for key := range operation.Images {
			if _, err := strconv.Atoi(key); err != nil {
				issues = append(issues, fmt.Sprintf("images key %q is not an image id", key))
			}
		}
	case OpSetFrameworkVersion:
		require(operation.FrameworkVersion > 0, "framework_version (positive)")
	case "":
		issues = append(issues, "op is required")
	default:
		issues = append(issues, "unknown op")
	}
	return issues
}

func validateValues(operation Operation) []string {
	hasProbes := len(operation.Values) > 0 || len(operation.RegexValues) > 0
	switch {
	case operation.Default && hasProbes:
		return []string{"default cannot be combined with values or regex_values"}
	case !operation.Default && !hasProbes:
		return []string{"one of default, values or regex_values is required"}
	}
	for key := range operation.RegexValues {
		if _, duplicate := operation.Values[key]; duplicate {
			return []string{fmt.Sprintf("probe key %q is in both values and regex_values", key)}
		}
	}
	return nil
}

func validateSelector(operation Operation) []string {
	if operation.ReferenceImageID != nil && operation.PatternIndex != nil {
		return []string{"reference_image_id and pattern_index are mutually exclusive"}
	}
	return nil
}
