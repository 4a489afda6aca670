// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestStampFromSettings(t *testing.T) {
	t.Parallel()

	current := buildStamp{commit: "unknown", time: "unknown"}
	got := stampFromSettings(current, []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-02-10T09:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})
	want := buildStamp{commit: "0123456", dirty: true, time: "2026-02-10T09:00:00Z"}
	if got != want {
		t.Errorf("stampFromSettings: got %+v, want %+v", got, want)
	}

	injected := buildStamp{commit: "unknown", time: "2026-01-01T00:00:00Z"}
	got = stampFromSettings(injected, []debug.BuildSetting{{Key: "vcs.time", Value: "2026-02-10T09:00:00Z"}})
	if got.time != "2026-01-01T00:00:00Z" {
		t.Errorf("injected build time was replaced: got %s", got.time)
	}
}

func TestInfoFormat(t *testing.T) {
	t.Parallel()

	info := Info()
	if !strings.HasPrefix(info, Version+" (") {
		t.Errorf("Info: got %q, want prefix %q", info, Version+" (")
	}
	if full := Full(); !strings.HasPrefix(full, info) || !strings.Contains(full, "Platform: ") {
		t.Errorf("Full: got %q", full)
	}
	if Short() != Version {
		t.Errorf("Short: got %q, want %q", Short(), Version)
	}
	if Commit() == "" {
		t.Error("Commit is empty")
	}
}
