// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"strings"
	"testing"

	"github.com/bureau-foundation/hwid/lib/testutil"
)

func TestChecksumIgnoresChecksumLine(t *testing.T) {
	t.Parallel()

	body := "project: X\nrules: []\n"
	if ChecksumForText([]byte("checksum: abc\n"+body)) != ChecksumForText([]byte(body)) {
		t.Error("checksum depends on the checksum line")
	}
	if ChecksumForText([]byte(body)) == ChecksumForText([]byte(body+"# comment\n")) {
		t.Error("checksum ignores a comment change")
	}
}

func TestReplaceChecksumPrependsWhenMissing(t *testing.T) {
	t.Parallel()

	body := []byte("project: X\n")
	got := string(ReplaceChecksum(body))
	want := "checksum: " + ChecksumForText(body) + "\nproject: X\n"
	if got != want {
		t.Errorf("ReplaceChecksum:\n got %q\nwant %q", got, want)
	}
}

func TestUpdateChecksumFileKeepsFormatting(t *testing.T) {
	t.Parallel()

	// The comment and odd indentation would not survive a re-export.
	original := "checksum: stale\n# keep me\n" + strings.TrimPrefix(sampleDocument, "checksum: ''\n")
	path := testutil.WriteFile(t, "CHROMEBOOK", []byte(original))

	checksum, err := UpdateChecksumFile(path)
	if err != nil {
		t.Fatalf("UpdateChecksumFile: %v", err)
	}
	text := testutil.ReadFile(t, path)
	testutil.RequireContains(t, string(text), "# keep me\n", "rewritten file")
	testutil.RequireContains(t, string(text), "checksum: "+checksum+"\n", "rewritten file")

	if _, err := LoadFile(path, LoadOptions{VerifyChecksum: true, Logger: testutil.DiscardLogger()}); err != nil {
		t.Errorf("LoadFile after UpdateChecksumFile: %v", err)
	}
}
