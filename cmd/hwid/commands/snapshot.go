// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/codec"
	"github.com/bureau-foundation/hwid/lib/editlock"
	"github.com/bureau-foundation/hwid/lib/snapshot"
)

// snapshotSummary is the --json form of a snapshot header.
type snapshotSummary struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Checksum    string    `json:"checksum"`
	Compression string    `json:"compression"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Note        string    `json:"note,omitempty"`
}

func summarizeSnapshot(header snapshot.Header) snapshotSummary {
	return snapshotSummary{
		ID:          header.ID.String(),
		Project:     header.Project,
		Checksum:    header.Checksum,
		Compression: header.Compression.String(),
		Size:        header.Size,
		CreatedAt:   header.CreatedAt,
		Note:        header.Note,
	}
}

// SnapshotRefParams selects one snapshot by id prefix, or with
// --latest by project name.
type SnapshotRefParams struct {
	CommonParams
	Latest bool `flag:"latest" desc:"treat the argument as a project name and use its newest snapshot"`
}

func resolveSnapshot(store *snapshot.Store, argument string, latest bool) (snapshot.ID, error) {
	if latest {
		header, err := store.Latest(strings.ToUpper(argument))
		if err != nil {
			return snapshot.ID{}, err
		}
		return header.ID, nil
	}
	return store.Resolve(argument)
}

func (a *app) snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:    "snapshot",
		Summary: "Manage stored database snapshots",
		Description: `Manage the snapshot store.

A snapshot is a compressed, content-addressed copy of a database file.
"hwid apply" takes one before writing its result; snapshots can also be
saved by hand. Snapshot ids are BLAKE3 hashes of the document and may
be abbreviated to any unique prefix of at least four hex digits.`,
		Subcommands: []*cli.Command{
			a.snapshotListCommand(),
			a.snapshotSaveCommand(),
			a.snapshotRestoreCommand(),
			a.snapshotShowCommand(),
			a.snapshotInspectCommand(),
		},
	}
}

// maxNoteWidth bounds the NOTE column of "hwid snapshot list".
const maxNoteWidth = 48

type snapshotListParams struct {
	CommonParams
	cli.JSONOutput
	Project string `flag:"project" desc:"only list snapshots of this project"`
}

func (a *app) snapshotListCommand() *cli.Command {
	var params snapshotListParams

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List stored snapshots, oldest first",
		Usage:   "hwid snapshot list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "hwid snapshot list"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "snapshot list")
			if err != nil {
				return err
			}
			store, err := env.snapshotStore()
			if err != nil {
				return err
			}
			headers, err := store.List()
			if err != nil {
				return err
			}

			summaries := make([]snapshotSummary, 0, len(headers))
			for _, header := range headers {
				if params.Project != "" && header.Project != params.Project {
					continue
				}
				summaries = append(summaries, summarizeSnapshot(header))
			}
			if done, err := params.EmitJSON(env.stdout, summaries); done {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintf(env.stdout, "no snapshots in %s\n", store.Dir())
				return nil
			}

			writer := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tPROJECT\tCREATED\tSIZE\tCOMPRESSION\tNOTE")
			for _, summary := range summaries {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\t%s\n",
					summary.ID[:12], summary.Project,
					summary.CreatedAt.Format(time.RFC3339),
					summary.Size, summary.Compression, ansi.Truncate(summary.Note, maxNoteWidth, "…"))
			}
			return writer.Flush()
		},
	}
}

type snapshotSaveParams struct {
	CommonParams
	Note string `flag:"note" desc:"free-form note stored with the snapshot"`
}

func (a *app) snapshotSaveCommand() *cli.Command {
	var params snapshotSaveParams

	return &cli.Command{
		Name:    "save",
		Summary: "Store a snapshot of a database",
		Description: `Store a snapshot of a database. The database is loaded first, so only
valid documents are stored. Saving an unchanged database again returns
the existing snapshot.`,
		Usage: "hwid snapshot save <database> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("save", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid snapshot save <database>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "snapshot save")
			if err != nil {
				return err
			}
			db, err := env.loadDatabase(args[0])
			if err != nil {
				return err
			}
			store, err := env.snapshotStore()
			if err != nil {
				return err
			}
			header, err := store.Save(db, params.Note)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.stdout, header.ID.String())
			return nil
		},
	}
}

type snapshotRestoreParams struct {
	SnapshotRefParams
	Output string `flag:"output,o" desc:"database file or project name to write (required)"`
}

func (a *app) snapshotRestoreCommand() *cli.Command {
	var params snapshotRestoreParams

	return &cli.Command{
		Name:    "restore",
		Summary: "Write a snapshot back out as a database file",
		Description: `Write the document stored in a snapshot to a database file, byte for
byte. The target is overwritten atomically.`,
		Usage: "hwid snapshot restore <id> -o <database>",
		Examples: []cli.Example{
			{
				Description: "Undo the last apply on a project",
				Command:     "hwid snapshot restore --latest CHROMEBOOK -o CHROMEBOOK",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("restore", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid snapshot restore <id> -o <database>"); err != nil {
				return err
			}
			if params.Output == "" {
				return fmt.Errorf("--output is required")
			}
			env, err := a.open(params.CommonParams, "snapshot restore")
			if err != nil {
				return err
			}
			store, err := env.snapshotStore()
			if err != nil {
				return err
			}
			id, err := resolveSnapshot(store, args[0], params.Latest)
			if err != nil {
				return err
			}
			path := env.config.DatabasePath(params.Output)
			lock, err := editlock.Acquire(path)
			if err != nil {
				return err
			}
			defer lock.Release()
			header, err := store.Restore(id, path, env.loadOptions())
			if err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "restored %s (%s) to %s\n", header.ID.Short(), header.Project, path)
			return nil
		},
	}
}

func (a *app) snapshotShowCommand() *cli.Command {
	var params SnapshotRefParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print the document stored in a snapshot",
		Usage:   "hwid snapshot show <id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid snapshot show <id>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "snapshot show")
			if err != nil {
				return err
			}
			store, err := env.snapshotStore()
			if err != nil {
				return err
			}
			id, err := resolveSnapshot(store, args[0], params.Latest)
			if err != nil {
				return err
			}
			loaded, err := store.Load(id)
			if err != nil {
				return err
			}
			_, err = env.stdout.Write(loaded.Document)
			return err
		},
	}
}

func (a *app) snapshotInspectCommand() *cli.Command {
	var params SnapshotRefParams

	return &cli.Command{
		Name:    "inspect",
		Summary: "Show a snapshot header in CBOR diagnostic notation",
		Usage:   "hwid snapshot inspect <id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid snapshot inspect <id>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "snapshot inspect")
			if err != nil {
				return err
			}
			store, err := env.snapshotStore()
			if err != nil {
				return err
			}
			id, err := resolveSnapshot(store, args[0], params.Latest)
			if err != nil {
				return err
			}
			loaded, err := store.Load(id)
			if err != nil {
				return err
			}
			encoded, err := codec.Marshal(loaded.Header)
			if err != nil {
				return err
			}
			diagnostic, err := codec.Diagnose(encoded)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.stdout, diagnostic)
			return nil
		},
	}
}
