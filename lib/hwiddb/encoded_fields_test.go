// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"slices"
	"testing"

	"github.com/bureau-foundation/hwid/lib/testutil"
)

func TestCombinationEqualIsMultiset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Combination
		want bool
	}{
		{"same order", Combination{"cpu": {"a", "b"}}, Combination{"cpu": {"a", "b"}}, true},
		{"reordered", Combination{"cpu": {"a", "b"}}, Combination{"cpu": {"b", "a"}}, true},
		{"multiplicity", Combination{"cpu": {"a", "a"}}, Combination{"cpu": {"a"}}, false},
		{"different class", Combination{"cpu": {"a"}}, Combination{"gpu": {"a"}}, false},
		{"null and empty", Combination{"cpu": nil}, Combination{"cpu": {}}, true},
		{"extra class", Combination{"cpu": {"a"}}, Combination{"cpu": {"a"}, "gpu": nil}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := test.a.Equal(test.b); got != test.want {
				t.Errorf("Equal(%s, %s): got %v, want %v", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestEncodedFieldShapeIsEnforced(t *testing.T) {
	t.Parallel()

	fields := NewEncodedFields(testutil.DiscardLogger())
	if err := fields.AddNewField("mixed", Combination{"cpu": {"cpu_0"}, "gpu": {"gpu_0"}}); err != nil {
		t.Fatalf("AddNewField: %v", err)
	}

	shapes := []Combination{
		{"cpu": {"cpu_1"}},
		{"cpu": {"cpu_1"}, "gpu": {"gpu_1"}, "ram": {"ram_0"}},
		{"cpu": {"cpu_1"}, "ram": {"ram_0"}},
	}
	for _, combination := range shapes {
		requireKind(t, fields.AddFieldComponents("mixed", combination), KindInvariant)
	}
	rows, _ := fields.GetField("mixed")
	if len(rows) != 1 {
		t.Errorf("rows after rejected additions: got %d, want 1", len(rows))
	}

	if err := fields.AddFieldComponents("mixed", Combination{"gpu": {"gpu_1"}, "cpu": nil}); err != nil {
		t.Fatalf("AddFieldComponents with matching shape: %v", err)
	}
	classes, _ := fields.GetComponentClasses("mixed")
	if !slices.Equal(classes, []string{"cpu", "gpu"}) {
		t.Errorf("GetComponentClasses: got %v, want [cpu gpu]", classes)
	}
}

func TestAddFieldComponentsIndices(t *testing.T) {
	t.Parallel()

	fields := NewEncodedFields(testutil.DiscardLogger())
	if err := fields.AddNewField("cpu_field", Combination{"cpu": {"a"}}); err != nil {
		t.Fatalf("AddNewField: %v", err)
	}
	if err := fields.AddFieldComponentsAt("cpu_field", Combination{"cpu": {"c"}}, 5); err != nil {
		t.Fatalf("AddFieldComponentsAt(5): %v", err)
	}
	if err := fields.AddFieldComponents("cpu_field", Combination{"cpu": {"d"}}); err != nil {
		t.Fatalf("AddFieldComponents: %v", err)
	}
	index, err := fields.FindIndex("cpu_field", Combination{"cpu": {"d"}})
	if err != nil {
		t.Fatalf("FindIndex: %v", err)
	}
	if index != 6 {
		t.Errorf("next index: got %d, want 6", index)
	}

	requireKind(t, fields.AddFieldComponentsAt("cpu_field", Combination{"cpu": {"e"}}, 5), KindDuplicate)
	requireKind(t, fields.AddFieldComponentsAt("cpu_field", Combination{"cpu": {"e"}}, -1), KindOutOfRange)
	requireKind(t, fields.AddFieldComponents("missing", Combination{"cpu": {"e"}}), KindNotFound)
	requireKind(t, fields.AddNewField("cpu_field", Combination{"cpu": {"e"}}), KindDuplicate)
	requireKind(t, fields.AddNewField("empty", Combination{}), KindMalformed)
}

func TestDuplicateCombinationIsSoftDefect(t *testing.T) {
	t.Parallel()

	logger, recorder := testutil.NewLogRecorder()
	fields := NewEncodedFields(logger)
	if err := fields.AddNewField("cpu_field", Combination{"cpu": {"a", "b"}}); err != nil {
		t.Fatalf("AddNewField: %v", err)
	}
	if err := fields.AddFieldComponents("cpu_field", Combination{"cpu": {"b", "a"}}); err != nil {
		t.Fatalf("AddFieldComponents returned an error: %v", err)
	}
	if fields.CanEncode() {
		t.Error("CanEncode still true after a repeated combination")
	}
	if len(recorder.Messages()) != 1 {
		t.Errorf("log messages: got %v, want exactly one warning", recorder.Messages())
	}
}

func TestGetFieldForComponent(t *testing.T) {
	t.Parallel()

	fields := NewEncodedFields(testutil.DiscardLogger())
	for _, step := range []struct {
		name        string
		combination Combination
	}{
		{"cpu_field", Combination{"cpu": {"a"}}},
		{"mixed", Combination{"cpu": {"a"}, "gpu": {"g"}}},
		{"ram_field", Combination{"ram": {"r"}}},
	} {
		if err := fields.AddNewField(step.name, step.combination); err != nil {
			t.Fatalf("AddNewField(%s): %v", step.name, err)
		}
	}

	if got := fields.GetFieldsForComponent("cpu"); !slices.Equal(got, []string{"cpu_field", "mixed"}) {
		t.Errorf("GetFieldsForComponent(cpu): got %v", got)
	}
	if got, err := fields.GetFieldForComponent("ram"); err != nil || got != "ram_field" {
		t.Errorf("GetFieldForComponent(ram): got (%q, %v), want ram_field", got, err)
	}
	_, err := fields.GetFieldForComponent("cpu")
	requireKind(t, err, KindInvariant)
	_, err = fields.GetFieldForComponent("storage")
	requireKind(t, err, KindNotFound)
}

func TestRenameComponentRewritesCombinations(t *testing.T) {
	t.Parallel()

	fields := NewEncodedFields(testutil.DiscardLogger())
	if err := fields.AddNewField("cpu_field", Combination{"cpu": {"old", "other"}}); err != nil {
		t.Fatalf("AddNewField: %v", err)
	}
	if err := fields.AddFieldComponents("cpu_field", Combination{"cpu": {"old", "old"}}); err != nil {
		t.Fatalf("AddFieldComponents: %v", err)
	}
	fields.RenameComponent("cpu", "old", "new")

	first, _ := fields.GetCombination("cpu_field", 0)
	if !first.Equal(Combination{"cpu": {"new", "other"}}) {
		t.Errorf("index 0: got %s", first)
	}
	second, _ := fields.GetCombination("cpu_field", 1)
	if !second.Equal(Combination{"cpu": {"new", "new"}}) {
		t.Errorf("index 1: got %s", second)
	}
}

func TestRegionField(t *testing.T) {
	t.Parallel()

	db := loadWritableSample(t)
	if !db.IsRegionField("region_field") {
		t.Fatal("region_field is not a region field")
	}
	rows, err := db.GetEncodedField("region_field")
	if err != nil {
		t.Fatalf("GetEncodedField: %v", err)
	}
	want := []IndexedCombination{
		{Index: 0, Combination: Combination{RegionClass: nil}},
		{Index: 1, Combination: Combination{RegionClass: {"us"}}},
		{Index: 2, Combination: Combination{RegionClass: {"gb"}}},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows: got %d, want %d", len(rows), len(want))
	}
	for position, row := range rows {
		if row.Index != want[position].Index || !row.Combination.Equal(want[position].Combination) {
			t.Errorf("row %d: got %d %s, want %d %s", position, row.Index, row.Combination,
				want[position].Index, want[position].Combination)
		}
	}
	requireKind(t, db.AddEncodedFieldComponents("region_field", Combination{RegionClass: {"us"}}), KindInvariant)
}

func TestLegacyRegionFieldUsesExternalList(t *testing.T) {
	t.Parallel()

	document := `checksum: ''
project: TEST
encoding_patterns:
  0: default
image_id:
  0: PROTO
pattern:
  - image_ids: [0]
    encoding_scheme: base8192
    fields:
      - region_field: 2
encoded_fields:
  region_field: !region_field
components:
  region: !region_component
rules: []
`
	db, err := LoadData([]byte(document), LoadOptions{
		Regions: []string{"us", "jp", "tw"},
		Logger:  testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	combination, err := db.GetEncodedFieldCombination("region_field", 3)
	if err != nil {
		t.Fatalf("GetEncodedFieldCombination(3): %v", err)
	}
	if !combination.Equal(Combination{RegionClass: {"tw"}}) {
		t.Errorf("index 3: got %s, want region tw", combination)
	}

	body, err := db.MarshalBody()
	if err != nil {
		t.Fatalf("MarshalBody: %v", err)
	}
	testutil.RequireNotContains(t, string(body), "jp", "legacy region list written into the document")
}
