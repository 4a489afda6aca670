// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the hwid tool.
//
// Configuration is loaded from a single file named by either the
// HWID_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no ~/.config discovery and no file search.
// [Resolve] is the CLI entry point: it takes the flag value, falls back
// to HWID_CONFIG, and only when neither is set uses [Default].
//
// The configuration file supports environment-specific sections
// (development, production) that override base values when
// [Config].Environment matches. Production defaults are stricter:
// database checksums are always verified and every edit batch is
// preceded by a snapshot.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${HWID_ROOT}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// This package depends on no other packages of this module.
package config
