// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

type verifyParams struct {
	CommonParams
	ExpectedChecksum string `flag:"expected-checksum" desc:"fail unless the stored checksum equals this value"`
}

func (a *app) verifyCommand() *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Load a database and check it for errors",
		Description: `Load a database, recompute its checksum and run the full set of
consistency checks.

Prints a one-line summary and exits 0 when the database is valid.
Prints the problem and exits 1 when it is not. The checksum is always
verified, regardless of configuration.`,
		Usage: "hwid verify <database> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid verify <database>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "verify")
			if err != nil {
				return err
			}

			options := env.loadOptions()
			options.VerifyChecksum = true
			options.ExpectedChecksum = params.ExpectedChecksum
			path := env.config.DatabasePath(args[0])
			db, err := hwiddb.LoadFile(path, options)
			if err != nil {
				fmt.Fprintf(env.stdout, "FAIL %s: %v\n", path, err)
				return &cli.ExitError{Code: 1}
			}

			fmt.Fprintf(env.stdout, "OK %s: project %s, checksum %s, %d images, %d patterns, %d component classes\n",
				path, db.Project(), db.Checksum(), len(db.ImageIDs()), len(db.Patterns()), len(db.ComponentClasses()))
			if !db.CanEncode() {
				fmt.Fprintln(env.stdout, "note: the database has ambiguous entries; it decodes identifiers but cannot mint new ones")
			}
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Verify a database file",
				Command:     "hwid verify ./CHROMEBOOK",
			},
			{
				Description: "Verify a released database against its published checksum",
				Command:     "hwid verify CHROMEBOOK --expected-checksum 3b1e0c...",
			},
		},
	}
}
