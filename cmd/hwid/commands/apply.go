// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/editbatch"
	"github.com/bureau-foundation/hwid/lib/editlock"
	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

type applyParams struct {
	CommonParams
	Output     string `flag:"output,o" desc:"write the edited database here instead of overwriting the input"`
	DryRun     bool   `flag:"dry-run" desc:"apply and validate the batch without writing anything"`
	NoSnapshot bool   `flag:"no-snapshot" desc:"skip the snapshot taken before writing"`
}

func (a *app) applyCommand() *cli.Command {
	var params applyParams

	return &cli.Command{
		Name:    "apply",
		Summary: "Apply a batch of edits to a database",
		Description: `Apply an edit batch to a database.

The batch is a JSON file (comments and trailing commas allowed) whose
operations run in order against a copy of the database. Either every
operation succeeds and the edited database passes validation, or
nothing is written and the failing operation is reported.

Unless disabled, a snapshot of the database is stored before the
edited file is written; "hwid snapshot restore" undoes the edit.`,
		Usage: "hwid apply <database> <batch.jsonc> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("apply", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 2, "hwid apply <database> <batch.jsonc>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "apply")
			if err != nil {
				return err
			}
			path := env.config.DatabasePath(args[0])
			if !params.DryRun {
				lock, err := editlock.Acquire(path)
				if err != nil {
					return err
				}
				defer lock.Release()
			}
			db, _, err := env.loadWritable(path)
			if err != nil {
				return err
			}
			batch, err := editbatch.ReadFile(args[1])
			if err != nil {
				return err
			}
			logger := env.logger.With("project", db.Project(), "batch", args[1])

			edited, err := editbatch.Apply(db, batch, logger)
			if err != nil {
				return err
			}
			if params.DryRun {
				fmt.Fprintf(env.stdout, "dry run: %d operations apply cleanly to %s\n", len(batch.Operations), db.Project())
				return nil
			}

			if env.config.Snapshot.BeforeApply && !params.NoSnapshot {
				store, err := env.snapshotStore()
				if err != nil {
					return err
				}
				note := "before " + args[1]
				if batch.Description != "" {
					note = "before " + batch.Description
				}
				header, err := store.Save(db.ReadOnly(), note)
				if err != nil {
					return fmt.Errorf("snapshotting %s before apply: %w", db.Project(), err)
				}
				fmt.Fprintf(env.stdout, "snapshot %s\n", header.ID.Short())
			}

			output := path
			if params.Output != "" {
				output = params.Output
			}
			if err := edited.SaveFile(output); err != nil {
				return err
			}
			text, err := edited.Marshal()
			if err != nil {
				return err
			}
			logger.Info("applied edit batch", "operations", len(batch.Operations), "path", output)
			fmt.Fprintf(env.stdout, "applied %d operations to %s (checksum %s)\n",
				len(batch.Operations), output, hwiddb.ChecksumForText(text))
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Check a batch without touching the database",
				Command:     "hwid apply CHROMEBOOK add-ssd.jsonc --dry-run",
			},
			{
				Description: "Apply a batch and write the result elsewhere",
				Command:     "hwid apply ./CHROMEBOOK add-ssd.jsonc -o ./CHROMEBOOK.new",
			},
		},
	}
}
