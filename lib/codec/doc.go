// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the deterministic CBOR encoding used wherever
// the HWID tooling needs canonical bytes.
//
// Two consumers depend on the encoding being canonical:
//
//   - Component content hashes (hwiddb): the exported form of a
//     component is encoded here and hashed. Map keys are sorted by the
//     encoder, so the hash does not depend on the order in which probe
//     values were written.
//   - Snapshot headers (snapshot): the container header is CBOR so
//     snapshots written by different builds compare byte for byte.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// This package depends on no other packages of this module.
package codec
