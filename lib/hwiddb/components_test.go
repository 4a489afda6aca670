// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"slices"
	"testing"

	"github.com/bureau-foundation/hwid/lib/testutil"
)

func TestComponentInfoHashIgnoresConstructionOrder(t *testing.T) {
	t.Parallel()

	first := PlainValues{Probes: ProbeValues{}}
	first.Probes["model"] = Literal("A")
	first.Probes["vendor"] = Literal("V")
	first.Probes["revision"] = Regexp("r[0-9]+")

	second := PlainValues{Probes: ProbeValues{}}
	second.Probes["revision"] = Regexp("r[0-9]+")
	second.Probes["vendor"] = Literal("V")
	second.Probes["model"] = Literal("A")

	a := mustComponentInfo(t, first, StatusSupported)
	b := mustComponentInfo(t, second, StatusSupported)
	if a.Hash() != b.Hash() {
		t.Errorf("hashes differ for identical content: %s vs %s", a.Hash(), b.Hash())
	}
	if !a.Equal(b) {
		t.Error("Equal returned false for identical content")
	}
	if len(a.Hash()) != 64 {
		t.Errorf("hash length: got %d, want 64 hex characters", len(a.Hash()))
	}
}

func TestComponentInfoHashDependsOnContent(t *testing.T) {
	t.Parallel()

	base := mustComponentInfo(t, Plain(map[string]string{"model": "A"}), StatusSupported)

	otherStatus := mustComponentInfo(t, Plain(map[string]string{"model": "A"}), StatusDeprecated)
	if base.Hash() == otherStatus.Hash() {
		t.Error("status change did not change the hash")
	}

	regex := mustComponentInfo(t, PlainValues{Probes: ProbeValues{"model": Regexp("A")}}, StatusSupported)
	if base.Hash() == regex.Hash() {
		t.Error("literal and regex expected values hash the same")
	}

	linked := mustComponentInfo(t, LinkedCatalogValues{
		Converter: "conv", Matched: true, Probes: ProbeValues{"model": Literal("A")},
	}, StatusSupported)
	if base.Hash() == linked.Hash() {
		t.Error("linking did not change the hash")
	}
}

func TestComponentInfoBundleUUIDs(t *testing.T) {
	t.Parallel()

	values := Plain(map[string]string{"model": "A"})
	plain := mustComponentInfo(t, values, StatusSupported)
	withBundles, err := NewComponentInfo(values, StatusSupported, nil, []string{
		"B4C4C4C4-0000-4000-8000-000000000002",
		"a4c4c4c4-0000-4000-8000-000000000001",
		"b4c4c4c4-0000-4000-8000-000000000002",
	})
	if err != nil {
		t.Fatalf("NewComponentInfo: %v", err)
	}
	want := []string{
		"a4c4c4c4-0000-4000-8000-000000000001",
		"b4c4c4c4-0000-4000-8000-000000000002",
	}
	if got := withBundles.BundleUUIDs(); !slices.Equal(got, want) {
		t.Errorf("BundleUUIDs: got %v, want %v", got, want)
	}
	if plain.Hash() != withBundles.Hash() {
		t.Error("bundle uuids contributed to the content hash")
	}
	if plain.Equal(withBundles) {
		t.Error("Equal ignored bundle uuids")
	}

	_, err = NewComponentInfo(values, StatusSupported, nil, []string{"not-a-uuid"})
	requireKind(t, err, KindMalformed)
}

func TestComponentInfoReplace(t *testing.T) {
	t.Parallel()

	original := mustComponentInfo(t, Plain(map[string]string{"model": "A"}), StatusSupported)
	replaced, err := original.Replace(WithStatus(StatusUnqualified), WithInformation(map[string]string{"note": "x"}))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if original.Status() != StatusSupported {
		t.Errorf("original status changed to %s", original.Status())
	}
	if replaced.Status() != StatusUnqualified {
		t.Errorf("replaced status: got %s, want %s", replaced.Status(), StatusUnqualified)
	}
	if replaced.Information()["note"] != "x" {
		t.Errorf("replaced information: got %v", replaced.Information())
	}
	if original.Hash() == replaced.Hash() {
		t.Error("Replace did not recompute the hash")
	}

	_, err = original.Replace(WithStatus("bogus"))
	requireKind(t, err, KindMalformed)
}

func TestComponentInfoExport(t *testing.T) {
	t.Parallel()

	info := mustComponentInfo(t, Plain(map[string]string{"model": "A"}), StatusSupported)
	exported := info.Export(ExportOptions{SuppressSupportStatus: true})
	if _, ok := exported["status"]; ok {
		t.Errorf("supported status exported despite suppression: %v", exported)
	}
	exported = info.Export(ExportOptions{OverrideStatus: StatusDeprecated, IsDefault: true})
	if exported["status"] != "deprecated" {
		t.Errorf("override status: got %v, want deprecated", exported["status"])
	}
	if exported["default"] != true {
		t.Errorf("default marker: got %v, want true", exported["default"])
	}
}

func TestAddComponentRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	components := NewComponents(testutil.DiscardLogger())
	if err := components.AddComponent("cpu", "cpu_0", mustComponentInfo(t, Plain(map[string]string{"model": "A"}), StatusSupported)); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	err := components.AddComponent("cpu", "cpu_0", mustComponentInfo(t, Plain(map[string]string{"model": "B"}), StatusSupported))
	requireKind(t, err, KindDuplicate)
	if got := len(components.GetComponents("cpu")); got != 1 {
		t.Errorf("component count: got %d, want 1", got)
	}
}

func TestDuplicateProbeValuesAreSoftDefect(t *testing.T) {
	t.Parallel()

	logger, recorder := testutil.NewLogRecorder()
	db := NewWritableDatabase("TEST", logger)
	if err := db.AddComponent("cpu", "cpu_0", Plain(map[string]string{"model": "A"}), StatusSupported, nil); err != nil {
		t.Fatalf("first AddComponent: %v", err)
	}
	if !db.CanEncode() {
		t.Fatal("CanEncode false after a single component")
	}
	if err := db.AddComponent("cpu", "cpu_1", Plain(map[string]string{"model": "A"}), StatusSupported, nil); err != nil {
		t.Fatalf("second AddComponent returned an error: %v", err)
	}
	if db.CanEncode() {
		t.Error("CanEncode still true after duplicate probe values")
	}
	if len(recorder.Messages()) == 0 {
		t.Error("duplicate probe values were not logged")
	}
	if got := len(db.GetComponents("cpu")); got != 2 {
		t.Errorf("component count: got %d, want 2", got)
	}
}

func TestDuplicateStatusExemptsRepeatedProbeValues(t *testing.T) {
	t.Parallel()

	db := newTestDatabase(t)
	if err := db.AddComponent("cpu", "cpu_0", Plain(map[string]string{"model": "A"}), StatusSupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := db.AddComponent("cpu", "cpu_1", Plain(map[string]string{"model": "A"}), StatusDuplicate, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if !db.CanEncode() {
		t.Error("CanEncode false although the repeat is marked duplicate")
	}
}

func TestSecondDefaultComponentIsSoftDefect(t *testing.T) {
	t.Parallel()

	db := newTestDatabase(t)
	if err := db.AddComponent("storage", "none_a", nil, StatusUnsupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if name, ok := db.GetDefaultComponent("storage"); !ok || name != "none_a" {
		t.Errorf("GetDefaultComponent: got (%q, %v), want (none_a, true)", name, ok)
	}
	if err := db.AddComponent("storage", "none_b", NoneValues{}, StatusUnsupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if db.CanEncode() {
		t.Error("CanEncode still true after a second default component")
	}
}

func TestGetComponentNameByHash(t *testing.T) {
	t.Parallel()

	db := newTestDatabase(t)
	if err := db.AddComponent("cpu", "cpu_0", Plain(map[string]string{"model": "A"}), StatusSupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	info, err := db.GetComponent("cpu", "cpu_0")
	if err != nil {
		t.Fatalf("GetComponent: %v", err)
	}
	if name, ok := db.GetComponentNameByHash("cpu", info.Hash()); !ok || name != "cpu_0" {
		t.Errorf("GetComponentNameByHash: got (%q, %v), want (cpu_0, true)", name, ok)
	}

	if err := db.SetComponentStatus("cpu", "cpu_0", StatusDeprecated); err != nil {
		t.Fatalf("SetComponentStatus: %v", err)
	}
	if _, ok := db.GetComponentNameByHash("cpu", info.Hash()); ok {
		t.Error("stale hash still indexed after status change")
	}
	updated, _ := db.GetComponent("cpu", "cpu_0")
	if name, ok := db.GetComponentNameByHash("cpu", updated.Hash()); !ok || name != "cpu_0" {
		t.Errorf("GetComponentNameByHash after update: got (%q, %v), want (cpu_0, true)", name, ok)
	}
}

func TestSetLinkAVLProbeValue(t *testing.T) {
	t.Parallel()

	db := newTestDatabase(t)
	if err := db.AddComponent("cpu", "cpu_0", Plain(map[string]string{"model": "A"}), StatusSupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := db.SetLinkAVLProbeValue("cpu", "cpu_0", "cpu_v2", false); err != nil {
		t.Fatalf("SetLinkAVLProbeValue: %v", err)
	}
	info, _ := db.GetComponent("cpu", "cpu_0")
	linked, ok := info.Values().(LinkedCatalogValues)
	if !ok {
		t.Fatalf("values type: got %T, want LinkedCatalogValues", info.Values())
	}
	if linked.Converter != "cpu_v2" || linked.Matched {
		t.Errorf("link: got (%q, %v), want (cpu_v2, false)", linked.Converter, linked.Matched)
	}
	if !SameProbes(linked, Plain(map[string]string{"model": "A"})) {
		t.Error("linking changed the probe values")
	}

	if err := db.AddComponent("cpu", "cpu_none", nil, StatusSupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	requireKind(t, db.SetLinkAVLProbeValue("cpu", "cpu_none", "cpu_v2", true), KindInvariant)
	requireKind(t, db.SetLinkAVLProbeValue("cpu", "missing", "cpu_v2", true), KindNotFound)
}

func TestRegionClassRejectsMutation(t *testing.T) {
	t.Parallel()

	db := loadWritableSample(t)
	requireKind(t, db.AddComponent(RegionClass, "jp", Plain(map[string]string{"region_code": "jp"}), StatusSupported, nil), KindInvariant)
	requireKind(t, db.SetComponentStatus(RegionClass, "us", StatusDeprecated), KindInvariant)

	info, err := db.GetComponent(RegionClass, "gb")
	if err != nil {
		t.Fatalf("GetComponent(region, gb): %v", err)
	}
	probes, _ := ProbesOf(info.Values())
	if probes["region_code"] != Literal("gb") {
		t.Errorf("region probe values: got %v, want region_code=gb", probes)
	}
}

func TestStatusChangeCanIntroduceSoftDefect(t *testing.T) {
	t.Parallel()

	logger, recorder := testutil.NewLogRecorder()
	db := NewWritableDatabase("TEST", logger)
	if err := db.AddComponent("cpu", "cpu_a", Plain(map[string]string{"model": "X"}), StatusSupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := db.AddComponent("cpu", "cpu_b", Plain(map[string]string{"model": "X"}), StatusDuplicate, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if !db.CanEncode() {
		t.Fatal("CanEncode false although the repeat is marked duplicate")
	}

	if err := db.SetComponentStatus("cpu", "cpu_b", StatusSupported); err != nil {
		t.Fatalf("SetComponentStatus: %v", err)
	}
	if db.CanEncode() {
		t.Error("CanEncode still true after dropping the duplicate status of a repeated component")
	}
	if len(recorder.Messages()) == 0 {
		t.Error("the new ambiguity was not logged")
	}
}

func TestBundleUUIDChangeKeepsSoftDefectsClean(t *testing.T) {
	t.Parallel()

	db := newTestDatabase(t)
	if err := db.AddComponent("cpu", "cpu_a", Plain(map[string]string{"model": "X"}), StatusSupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := db.AddComponent("cpu", "cpu_b", Plain(map[string]string{"model": "Y"}), StatusSupported, nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := db.SetBundleUUIDs("cpu", "cpu_a", []string{"5f1a2b3c-4d5e-4f60-8a7b-9c0d1e2f3a4b"}); err != nil {
		t.Fatalf("SetBundleUUIDs: %v", err)
	}
	if !db.CanEncode() {
		t.Error("CanEncode false after editing a component that only matches itself")
	}
}

func TestGetComponentNameByHashKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	db := newTestDatabase(t)
	for _, name := range []string{"cpu_0", "cpu_1"} {
		if err := db.AddComponent("cpu", name, Plain(map[string]string{"model": "A"}), StatusDuplicate, nil); err != nil {
			t.Fatalf("AddComponent(%s): %v", name, err)
		}
	}
	// Bundle UUIDs are not part of the content hash, so cpu_0 keeps its
	// hash while being replaced.
	if err := db.SetBundleUUIDs("cpu", "cpu_0", []string{"5f1a2b3c-4d5e-4f60-8a7b-9c0d1e2f3a4b"}); err != nil {
		t.Fatalf("SetBundleUUIDs: %v", err)
	}
	info, err := db.GetComponent("cpu", "cpu_0")
	if err != nil {
		t.Fatalf("GetComponent: %v", err)
	}
	if name, ok := db.GetComponentNameByHash("cpu", info.Hash()); !ok || name != "cpu_0" {
		t.Errorf("GetComponentNameByHash: got (%q, %v), want (cpu_0, true)", name, ok)
	}
}

// wrappedValues embeds a variant and so satisfies Values without being
// one of its variants.
type wrappedValues struct {
	PlainValues
}

func TestNewComponentInfoValueForms(t *testing.T) {
	t.Parallel()

	plain := Plain(map[string]string{"model": "A"})
	fromPointer, err := NewComponentInfo(&plain, StatusSupported, nil, nil)
	if err != nil {
		t.Fatalf("NewComponentInfo(*PlainValues): %v", err)
	}
	if fromPointer.Hash() != mustComponentInfo(t, plain, StatusSupported).Hash() {
		t.Error("*PlainValues and PlainValues hash differently")
	}
	if _, ok := fromPointer.Values().(PlainValues); !ok {
		t.Errorf("values type: got %T, want PlainValues", fromPointer.Values())
	}

	linked := &LinkedCatalogValues{Converter: "cpu_v1", Matched: true, Probes: plain.Probes}
	if _, err := NewComponentInfo(linked, StatusSupported, nil, nil); err != nil {
		t.Errorf("NewComponentInfo(*LinkedCatalogValues): %v", err)
	}

	var nilPlain *PlainValues
	none, err := NewComponentInfo(nilPlain, StatusUnsupported, nil, nil)
	if err != nil {
		t.Fatalf("NewComponentInfo(nil *PlainValues): %v", err)
	}
	if !none.IsDefault() {
		t.Error("nil *PlainValues did not produce a default component")
	}

	_, err = NewComponentInfo(wrappedValues{plain}, StatusSupported, nil, nil)
	requireKind(t, err, KindMalformed)
}
