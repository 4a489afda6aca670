// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the hwid CLI command tree.
//
// Every command loads configuration the same way (--config, then
// HWID_CONFIG, then built-in defaults), logs through a slog logger on
// stderr, and writes its results to stdout. Database arguments are
// either file paths or project names resolved under the configured
// databases directory.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/config"
	"github.com/bureau-foundation/hwid/lib/hwiddb"
	"github.com/bureau-foundation/hwid/lib/snapshot"
)

// app carries the output streams shared by every command.
type app struct {
	stdout io.Writer
	stderr io.Writer
}

// CommonParams holds the flags every command accepts.
type CommonParams struct {
	Config string `json:"-" flag:"config" desc:"configuration file (default: $HWID_CONFIG, else built-in defaults)"`
}

// environment is what a command runs with once its flags are parsed.
type environment struct {
	config *config.Config
	logger *slog.Logger
	stdout io.Writer
}

// open loads and validates the configuration and builds the command
// logger.
func (a *app) open(params CommonParams, command string) (*environment, error) {
	cfg, err := config.Resolve(params.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := cli.NewLogger(a.stderr, cli.IsTerminal(a.stderr), cfg.LogLevel(), cfg.Log.Format).
		With("command", command)
	return &environment{config: cfg, logger: logger, stdout: a.stdout}, nil
}

func (e *environment) loadOptions() hwiddb.LoadOptions {
	return hwiddb.LoadOptions{
		VerifyChecksum: e.config.Database.VerifyChecksum,
		Regions:        e.config.Database.Regions,
		Logger:         e.logger,
	}
}

// loadDatabase resolves a database argument and loads it read-only.
func (e *environment) loadDatabase(argument string) (*hwiddb.Database, error) {
	return hwiddb.LoadFile(e.config.DatabasePath(argument), e.loadOptions())
}

// loadWritable resolves a database argument and loads it for editing.
// It also returns the resolved path.
func (e *environment) loadWritable(argument string) (*hwiddb.WritableDatabase, string, error) {
	path := e.config.DatabasePath(argument)
	db, err := hwiddb.LoadWritableFile(path, e.loadOptions())
	return db, path, err
}

func (e *environment) snapshotStore() (*snapshot.Store, error) {
	if err := e.config.EnsurePaths(); err != nil {
		return nil, err
	}
	compression, err := snapshot.ParseCompression(e.config.Snapshot.Compression)
	if err != nil {
		return nil, err
	}
	return snapshot.NewStore(e.config.Paths.Snapshots, snapshot.Options{
		Compression: compression,
		Logger:      e.logger,
	}), nil
}

// requireArgs checks the number of positional arguments.
func requireArgs(args []string, count int, usage string) error {
	if len(args) != count {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

// imageSelector maps the conventional -1 "latest" flag value to the
// zero Selector.
func imageSelector(imageID int) hwiddb.Selector {
	if imageID < 0 {
		return hwiddb.Selector{}
	}
	return hwiddb.ByImageID(imageID)
}

// Root builds the complete hwid CLI command tree writing to the process
// streams.
func Root() *cli.Command {
	return newRoot(os.Stdout, os.Stderr)
}

func newRoot(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:       "hwid",
		HelpOutput: stderr,
		Description: `hwid: inspect and edit HWID databases.

An HWID database maps a device's hardware components to the compact
bit string embedded in its hardware identifier. These commands verify
and re-checksum database files, describe their encoding patterns,
apply batches of edits with snapshots for undo, and encode or decode
component bit strings.`,
		Subcommands: []*cli.Command{
			a.verifyCommand(),
			a.checksumCommand(),
			a.showCommand(),
			a.bitmapCommand(),
			a.exportCommand(),
			a.applyCommand(),
			a.encodeCommand(),
			a.decodeCommand(),
			a.snapshotCommand(),
			a.versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Check a database and its checksum",
				Command:     "hwid verify CHROMEBOOK",
			},
			{
				Description: "Show which field each bit of the latest pattern carries",
				Command:     "hwid bitmap CHROMEBOOK",
			},
			{
				Description: "Apply an edit batch (a snapshot is taken first)",
				Command:     "hwid apply CHROMEBOOK add-ssd.jsonc",
			},
			{
				Description: "Undo the last edit",
				Command:     "hwid snapshot restore 3fa9c2 -o CHROMEBOOK",
			},
		},
	}
}
