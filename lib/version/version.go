// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/hwid/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// stamp is the commit information in effect: the ldflags values, or
// the build info VCS settings when those were not injected.
var stamp = sync.OnceValue(func() buildStamp {
	current := buildStamp{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if GitCommit != "unknown" {
		return current
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return current
	}
	return stampFromSettings(current, info.Settings)
})

type buildStamp struct {
	commit string
	dirty  bool
	time   string
}

func stampFromSettings(current buildStamp, settings []debug.BuildSetting) buildStamp {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			current.commit = setting.Value
			if len(current.commit) > 7 {
				current.commit = current.commit[:7]
			}
		case "vcs.modified":
			current.dirty = setting.Value == "true"
		case "vcs.time":
			if current.time == "unknown" {
				current.time = setting.Value
			}
		}
	}
	return current
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	current := stamp()
	dirty := ""
	if current.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, current.commit, dirty, current.time)
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Commit returns the git commit SHA.
func Commit() string {
	return stamp().commit
}
