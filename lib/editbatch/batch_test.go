// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package editbatch

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bureau-foundation/hwid/lib/hwiddb"
	"github.com/bureau-foundation/hwid/lib/testutil"
)

// seedBatch builds a complete database from nothing.
const seedBatch = `{
  // Seed a new product.
  "description": "initial database",
  "operations": [
    {"op": "add_component", "class": "cpu", "name": "cpu_a", "values": {"model": "A"}},
    {"op": "add_component", "class": "cpu", "name": "cpu_b", "regex_values": {"model": "B.*"}, "status": "unqualified"},
    {"op": "add_component", "class": "storage", "name": "none", "default": true, "status": "unsupported"},
    {"op": "add_image", "image_id": 0, "image_name": "PROTO", "encoding_scheme": "base8192", "new_pattern": true},
    {"op": "add_encoded_field", "field": "cpu_field", "components": {"cpu": ["cpu_a"]}},
    {"op": "add_encoded_field_components", "field": "cpu_field", "components": {"cpu": ["cpu_b"]}},
    {"op": "add_encoded_field", "field": "storage_field", "components": {"storage": ["none"]}},
    {"op": "append_encoded_field_bit", "field": "cpu_field", "bit_length": 1, "image_id": 0},
    {"op": "append_encoded_field_bit", "field": "storage_field", "bit_length": 1},
    {"op": "add_device_info_rule", "suffix": "image_id", "evaluate": ["SetImageId(0)"], "position": 0},
    {"op": "set_framework_version", "framework_version": 1}, /* trailing comma below */
  ],
}`

func applySeed(t *testing.T) *hwiddb.WritableDatabase {
	t.Helper()
	batch, err := Parse([]byte(seedBatch))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	db, err := Apply(hwiddb.NewWritableDatabase("TEST", testutil.DiscardLogger()), batch, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return db
}

func TestParseJSONC(t *testing.T) {
	t.Parallel()

	batch, err := Parse([]byte(seedBatch))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if batch.Description != "initial database" {
		t.Errorf("Description: got %q", batch.Description)
	}
	if len(batch.Operations) != 11 {
		t.Fatalf("operations: got %d, want 11", len(batch.Operations))
	}
	if op := batch.Operations[3]; op.ImageID == nil || *op.ImageID != 0 || !op.NewPattern {
		t.Errorf("add_image operation: got %+v", op)
	}

	if _, err := Parse([]byte(`{"operations": [`)); err == nil {
		t.Error("Parse accepted truncated input")
	}
}

func TestApplySeed(t *testing.T) {
	t.Parallel()

	db := applySeed(t)
	mapping, err := db.GetBitMapping(hwiddb.ByImageID(0))
	if err != nil {
		t.Fatalf("GetBitMapping: %v", err)
	}
	want := []hwiddb.BitEntry{{Field: "cpu_field", Offset: 0}, {Field: "storage_field", Offset: 0}}
	if !slices.Equal(mapping, want) {
		t.Errorf("mapping: got %v, want %v", mapping, want)
	}
	cpuB, err := db.GetComponent("cpu", "cpu_b")
	if err != nil {
		t.Fatalf("GetComponent(cpu_b): %v", err)
	}
	probes, _ := hwiddb.ProbesOf(cpuB.Values())
	if probes["model"] != hwiddb.Regexp("B.*") || cpuB.Status() != hwiddb.StatusUnqualified {
		t.Errorf("cpu_b: got %v %s", probes, cpuB.Status())
	}
	if name, ok := db.GetDefaultComponent("storage"); !ok || name != "none" {
		t.Errorf("default storage: got (%q, %v)", name, ok)
	}
	if db.FrameworkVersion() != 1 {
		t.Errorf("FrameworkVersion: got %d", db.FrameworkVersion())
	}
	if rules := db.Rules(); len(rules) != 1 || rules[0].Name != "device_info.image_id" {
		t.Errorf("rules: got %+v", rules)
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	t.Parallel()

	db := applySeed(t)
	batch, err := Parse([]byte(`{
  "operations": [
    {"op": "add_component", "class": "cpu", "name": "cpu_c", "values": {"model": "C"}},
    {"op": "set_component_status", "class": "cpu", "name": "missing", "status": "deprecated"},
  ],
}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	result, err := Apply(db, batch, testutil.DiscardLogger())
	if err == nil {
		t.Fatal("Apply succeeded with a failing operation")
	}
	if result != nil {
		t.Error("Apply returned a database alongside an error")
	}
	testutil.RequireContains(t, err.Error(), "operations[1]", "error message")
	if !hwiddb.IsInvalidOperation(err) {
		t.Errorf("error does not wrap the database error: %v", err)
	}
	if _, err := db.GetComponent("cpu", "cpu_c"); err == nil {
		t.Error("first operation leaked into the original database")
	}
}

func TestApplyRejectsInvalidResult(t *testing.T) {
	t.Parallel()

	db := applySeed(t)
	// Index 2 needs two bits but cpu_field has one.
	batch, err := Parse([]byte(`{"operations": [
    {"op": "add_component", "class": "cpu", "name": "cpu_c", "values": {"model": "C"}},
    {"op": "add_encoded_field_components", "field": "cpu_field", "components": {"cpu": ["cpu_c"]}}
  ]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Apply(db, batch, testutil.DiscardLogger()); err == nil {
		t.Fatal("Apply accepted a database that fails validation")
	}
}

func TestApplyComponentEdits(t *testing.T) {
	t.Parallel()

	db := applySeed(t)
	batch, err := Parse([]byte(`{"operations": [
    {"op": "update_component", "class": "cpu", "name": "cpu_a", "new_name": "cpu_alpha", "values": {"model": "A", "cores": "4"}, "new_bundle": true},
    {"op": "set_link_avl", "class": "cpu", "name": "cpu_alpha", "converter": "cpu_v1", "probe_value_matched": true},
    {"op": "set_bundle_uuids", "class": "cpu", "name": "cpu_b", "bundle_uuids": ["7C9E6679-7425-40DE-944B-E07FC1F90AE7"]},
    {"op": "rename_images", "images": {"0": "EVT"}}
  ]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	edited, err := Apply(db, batch, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	alpha, err := edited.GetComponent("cpu", "cpu_alpha")
	if err != nil {
		t.Fatalf("GetComponent(cpu_alpha): %v", err)
	}
	if linked, ok := alpha.Values().(hwiddb.LinkedCatalogValues); !ok || linked.Converter != "cpu_v1" || !linked.Matched {
		t.Errorf("cpu_alpha values: got %#v", alpha.Values())
	}
	if bundles := alpha.BundleUUIDs(); len(bundles) != 1 || uuid.Validate(bundles[0]) != nil {
		t.Errorf("cpu_alpha bundle uuids: got %v, want one generated uuid", bundles)
	}
	combination, _ := edited.GetEncodedFieldCombination("cpu_field", 0)
	if !combination.Equal(hwiddb.Combination{"cpu": {"cpu_alpha"}}) {
		t.Errorf("cpu_field[0]: got %s", combination)
	}
	cpuB, _ := edited.GetComponent("cpu", "cpu_b")
	if got := cpuB.BundleUUIDs(); !slices.Equal(got, []string{"7c9e6679-7425-40de-944b-e07fc1f90ae7"}) {
		t.Errorf("cpu_b bundle uuids: got %v", got)
	}
	if name, _ := edited.GetImageName(0); name != "EVT" {
		t.Errorf("image 0: got %q", name)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		batch string
		want  string
	}{
		{"empty", `{"operations": []}`, "no operations"},
		{"missing op", `{"operations": [{"class": "cpu"}]}`, "op is required"},
		{"unknown op", `{"operations": [{"op": "drop_table"}]}`, "unknown op"},
		{"missing class", `{"operations": [{"op": "add_component", "name": "x", "default": true}]}`, "class is required"},
		{"no values", `{"operations": [{"op": "add_component", "class": "cpu", "name": "x"}]}`, "one of default"},
		{"default with values", `{"operations": [{"op": "add_component", "class": "cpu", "name": "x", "default": true, "values": {"a": "b"}}]}`, "cannot be combined"},
		{"both selectors", `{"operations": [{"op": "add_image", "image_id": 1, "image_name": "EVT", "encoding_scheme": "base8192", "reference_image_id": 0, "pattern_index": 0}]}`, "mutually exclusive"},
		{"bad image key", `{"operations": [{"op": "rename_images", "images": {"one": "EVT"}}]}`, "not an image id"},
		{"zero bits", `{"operations": [{"op": "append_encoded_field_bit", "field": "f"}]}`, "bit_length"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			batch, err := Parse([]byte(test.batch))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			issues := Validate(batch)
			if !slices.ContainsFunc(issues, func(issue string) bool { return strings.Contains(issue, test.want) }) {
				t.Errorf("issues %q do not mention %q", issues, test.want)
			}
		})
	}
}
