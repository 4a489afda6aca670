// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for hwid packages.
//
// [WriteFile] and [ReadFile] manage fixture files inside t.TempDir().
//
// [NewLogRecorder] returns a *slog.Logger whose records are kept in
// memory, so tests can assert that a soft defect was logged rather
// than returned as an error. [DiscardLogger] silences library logging
// in tests that do not care about it.
//
// [RequireContains] and [RequireNotContains] check substrings of
// command output and error messages.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, for example distinct project names in a shared
// snapshot directory.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no hwid-internal dependencies.
package testutil
