// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"testing"

	"github.com/bureau-foundation/hwid/lib/testutil"
)

// sampleDocument exercises every section and tag of the document
// format. Image id 1 shares no pattern with image id 0 and grows
// cpu_field with a second chunk.
const sampleDocument = `checksum: ''
project: CHROMEBOOK
encoding_patterns:
  0: default
image_id:
  0: PROTO
  1: EVT
  15: RMA
pattern:
  - image_ids: [0, 15]
    encoding_scheme: base8192
    fields:
      - cpu_field: 2
      - region_field: 3
  - image_ids: [1]
    encoding_scheme: base8192
    fields:
      - cpu_field: 2
      - region_field: 3
      - cpu_field: 1
      - storage_field: 2
encoded_fields:
  cpu_field:
    0:
      cpu: cpu_a
    1:
      cpu: cpu_b
    2:
      cpu: [cpu_a, cpu_b]
  storage_field:
    0:
      storage: null
    1:
      storage: ssd_128
  region_field: !region_field [us, gb]
components:
  cpu:
    items:
      cpu_a:
        values:
          model: Intel A
          cores: '4'
      cpu_b:
        status: deprecated
        values:
          model: !re 'AMD .*'
  storage:
    items:
      storage_default:
        default: true
        status: unsupported
        values: null
      ssd_128:
        values: !link_avl
          converter: storage_v1
          original_values:
            size: '128'
          probe_value_matched: true
        information:
          comment: primary
        bundle_uuids:
          - 2F1C6A50-9C7E-4C1B-9D53-3D1A0B6E7F10
  region: !region_component [us, gb]
rules:
  - name: device_info.image_id
    evaluate: SetImageId(GetImageIdFromBoardId())
  - name: verify.components
    when: IsRMA()
    evaluate:
      - CheckA()
      - CheckB()
    otherwise: Fallback()
framework_version: 2
`

func loadSample(t *testing.T) *Database {
	t.Helper()
	db, err := LoadData([]byte(sampleDocument), LoadOptions{Logger: testutil.DiscardLogger()})
	if err != nil {
		t.Fatalf("LoadData(sample): %v", err)
	}
	return db
}

func loadWritableSample(t *testing.T) *WritableDatabase {
	t.Helper()
	db, err := LoadWritableData([]byte(sampleDocument), LoadOptions{Logger: testutil.DiscardLogger()})
	if err != nil {
		t.Fatalf("LoadWritableData(sample): %v", err)
	}
	return db
}

// newTestDatabase returns an empty writable database with a silent
// logger.
func newTestDatabase(t *testing.T) *WritableDatabase {
	t.Helper()
	return NewWritableDatabase("TEST", testutil.DiscardLogger())
}

// requireKind fails unless err is an *Error of the given kind.
func requireKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("got nil error, want %s error", want)
	}
	kind, ok := KindOf(err)
	if !ok {
		t.Fatalf("error %v is not an invalid database operation", err)
	}
	if kind != want {
		t.Fatalf("error kind: got %s, want %s (%v)", kind, want, err)
	}
}

func mustComponentInfo(t *testing.T, values Values, status Status) ComponentInfo {
	t.Helper()
	info, err := NewComponentInfo(values, status, nil, nil)
	if err != nil {
		t.Fatalf("NewComponentInfo: %v", err)
	}
	return info
}
