// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleHeader struct {
	Project string `cbor:"project"`
	Size    int    `cbor:"size"`
	Hash    string `cbor:"hash,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	t.Parallel()
	original := sampleHeader{Project: "CHROMEBOOK", Size: 4096, Hash: "ab12"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleHeader
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalMapKeyOrderIndependent(t *testing.T) {
	t.Parallel()
	// Go randomizes map iteration; build the same logical map many
	// times and require identical bytes every time.
	var first []byte
	for attempt := 0; attempt < 20; attempt++ {
		value := map[string]any{}
		for _, key := range []string{"vendor", "model", "size", "compatible", "revision"} {
			value[key] = key + "-value"
		}
		data, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if first == nil {
			first = data
			continue
		}
		if !bytes.Equal(first, data) {
			t.Fatalf("attempt %d: encoding differs: %x != %x", attempt, data, first)
		}
	}
}

func TestUnmarshalAnyUsesStringKeyedMaps(t *testing.T) {
	t.Parallel()
	data, err := Marshal(map[string]any{"values": map[string]any{"model": "A"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if _, ok := outer["values"].(map[string]any); !ok {
		t.Errorf("nested type = %T, want map[string]any", outer["values"])
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	t.Parallel()
	var header sampleHeader
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &header); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestDiagnose(t *testing.T) {
	t.Parallel()
	data, err := Marshal(map[string]any{"project": "TEST"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"project"`) || !strings.Contains(notation, `"TEST"`) {
		t.Errorf("Diagnose = %q, want it to mention the key and value", notation)
	}
}
