// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwiddb implements the HWID database encoding engine: the
// per-product document that maps named hardware components to the bit
// fields of a Hardware ID, and the invariants that let the bit layout
// grow release over release without invalidating identifiers already
// stamped into shipped devices.
//
// # Document model
//
// A [Database] owns exactly one of each entity:
//
//   - [EncodingPatterns] and [ImageID] -- append-only numbered-name
//     registries. Image id 15 is reserved for the RMA pattern.
//   - [Pattern] -- ordered bit layouts. Each image id is bound to one
//     pattern; a pattern is a list of (field, bit length) chunks.
//   - [EncodedFields] -- per field, an index -> [Combination] table.
//     All indices of a field cover the same component classes.
//   - [Components] -- per class, the named [ComponentInfo] values and a
//     content-hash index.
//   - [Rules] -- ordered, namespaced rule records (storage only).
//
// Entities never reference the Database that owns them.
//
// # Bit mapping
//
// [Pattern.GetBitMapping] is the codec at the center of the engine. It
// walks the chunks of a pattern in declaration order and emits, for
// every bit of the component bit string, the field it belongs to and
// the bit offset within that field's index. A field split over several
// chunks (bits added in later revisions) still receives one contiguous
// offset range. When the output is truncated with
// [Pattern.GetBitMappingTruncated], the chunk that crosses the limit is
// treated as a narrower chunk and the walk stops; identifiers minted
// under shorter legacy layouts depend on this exact behavior.
//
// # Errors
//
// Every violated precondition returns an [*Error] (see
// [IsInvalidOperation]). Historically tolerated ambiguity -- duplicate
// probe values, a second default component, a repeated encoded-field
// combination -- does not fail: it is logged and recorded by
// [Database.CanEncode] turning false. Such a document still loads and
// decodes but must not be used to mint new identifiers.
//
// # Concurrency
//
// A read-only [Database] may be shared between goroutines. A
// [WritableDatabase] has no internal locking and must be mutated from
// one goroutine at a time. Mutations are not transactional; use
// [WritableDatabase.Clone] before a batch that must apply all or
// nothing.
package hwiddb
