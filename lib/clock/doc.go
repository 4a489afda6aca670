// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall clock.
//
// Code that stamps records with the current time accepts a Clock
// instead of calling time.Now directly. In production, Real() provides
// the standard library behavior. In tests, Fake() provides a clock that
// only moves when Advance is called, so timestamps and their ordering
// are deterministic:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store := snapshot.NewStore(dir, snapshot.Options{Clock: c})
//	c.Advance(time.Minute)
package clock
