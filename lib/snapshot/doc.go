// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot keeps a content-addressed history of HWID databases.
//
// Every snapshot is one file holding the full serialized document,
// compressed, behind a small self-describing header:
//
//	magic "HWIDSNP1" | uint32 header length (big endian) | CBOR header | payload
//
// The header records the project, the document checksum, the
// compression tag, the uncompressed size, the content hash and the
// creation time. A snapshot's [ID] is the BLAKE3 keyed hash of the
// uncompressed document, so saving the same document twice stores it
// once regardless of the compression in use.
//
// On-disk layout of a [Store]:
//
//	<dir>/<id[:2]>/<id>.snap
//
// The CLI takes a snapshot before every edit batch it applies, which
// makes "snapshot restore" the undo path for a bad edit.
package snapshot
