// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local editing of database files.
	Development Environment = "development"
	// Production is for the build and factory pipelines that consume
	// released databases.
	Production Environment = "production"
)

// Config is the configuration of the hwid tool.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Database configures how database files are loaded.
	Database DatabaseConfig `yaml:"database"`

	// Snapshot configures the snapshot store.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Log configures the command logger.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
	Snapshot *SnapshotConfig `yaml:"snapshot,omitempty"`
	Log      *LogConfig      `yaml:"log,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for hwid data.
	Root string `yaml:"root"`

	// Databases is where project database files live. Commands that
	// take a project name instead of a path look here for <PROJECT>.
	Databases string `yaml:"databases"`

	// Snapshots is the root of the snapshot store.
	Snapshots string `yaml:"snapshots"`
}

// DatabaseConfig configures database loading.
type DatabaseConfig struct {
	// VerifyChecksum recomputes and checks the checksum of every
	// loaded database.
	// Default: false (development), true (production)
	VerifyChecksum bool `yaml:"verify_checksum"`

	// Regions is the region list used by documents that still carry
	// the bare legacy region tags.
	Regions []string `yaml:"regions"`
}

// SnapshotConfig configures the snapshot store.
type SnapshotConfig struct {
	// Compression is applied to new snapshots: none, lz4 or zstd.
	// Default: zstd
	Compression string `yaml:"compression"`

	// BeforeApply stores a snapshot of the database before every
	// edit batch is applied.
	// Default: true
	BeforeApply bool `yaml:"before_apply"`
}

// LogConfig configures the command logger.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format selects the handler: auto (text on a terminal, JSON
	// otherwise), text or json.
	// Default: auto
	Format string `yaml:"format"`
}

var (
	compressionValues = []string{"none", "lz4", "zstd"}
	formatValues      = []string{"auto", "text", "json"}
)

// Default returns the default configuration. Loaded files are merged
// over it, so every field has a usable value.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "hwid")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:      defaultRoot,
			Databases: filepath.Join(defaultRoot, "databases"),
			Snapshots: filepath.Join(defaultRoot, "snapshots"),
		},
		Snapshot: SnapshotConfig{
			Compression: "zstd",
			BeforeApply: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the HWID_CONFIG environment variable.
// It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv("HWID_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("HWID_CONFIG environment variable not set; " +
			"set it to the path of your hwid.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// Resolve returns the configuration the CLI runs with: the file at
// path when non-empty, else the file named by HWID_CONFIG, else
// [Default] with variables expanded.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv("HWID_CONFIG") != "" {
		return Load()
	}
	cfg := Default()
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
// Unknown keys are errors so a misspelled option never silently falls
// back to its default.
func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Released databases must always pass their checksum and
		// every edit must be undoable.
		c.Database.VerifyChecksum = true
		c.Snapshot.BeforeApply = true
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Databases != "" {
			c.Paths.Databases = overrides.Paths.Databases
		}
		if overrides.Paths.Snapshots != "" {
			c.Paths.Snapshots = overrides.Paths.Snapshots
		}
	}

	if overrides.Database != nil {
		// Production never relaxes checksum verification.
		if c.Environment != Production {
			c.Database.VerifyChecksum = overrides.Database.VerifyChecksum
		}
		if overrides.Database.Regions != nil {
			c.Database.Regions = overrides.Database.Regions
		}
	}

	if overrides.Snapshot != nil {
		if overrides.Snapshot.Compression != "" {
			c.Snapshot.Compression = overrides.Snapshot.Compression
		}
		// BeforeApply is a bool, so an override section always sets it.
		if c.Environment != Production {
			c.Snapshot.BeforeApply = overrides.Snapshot.BeforeApply
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HWID_ROOT": c.Paths.Root,
		"HOME":      os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["HWID_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Databases = expandVars(c.Paths.Databases, vars)
	c.Paths.Snapshots = expandVars(c.Paths.Snapshots, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// LogLevel returns the configured log level. Call Validate first; an
// unparseable level yields slog.LevelInfo.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Snapshots == "" {
		errs = append(errs, fmt.Errorf("paths.snapshots is required"))
	}

	if !slices.Contains(compressionValues, c.Snapshot.Compression) {
		errs = append(errs, fmt.Errorf("snapshot.compression must be one of: %v", compressionValues))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !slices.Contains(formatValues, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formatValues))
	}

	for index, region := range c.Database.Regions {
		if region == "" {
			errs = append(errs, fmt.Errorf("database.regions[%d] is empty", index))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.Databases,
		c.Paths.Snapshots,
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

// DatabasePath returns the path of a database argument. An argument
// containing a path separator or naming an existing file is used as
// is; otherwise it names a project file under Paths.Databases.
func (c *Config) DatabasePath(argument string) string {
	if filepath.Base(argument) != argument || c.Paths.Databases == "" {
		return argument
	}
	if _, err := os.Stat(argument); err == nil {
		return argument
	}
	return filepath.Join(c.Paths.Databases, argument)
}
