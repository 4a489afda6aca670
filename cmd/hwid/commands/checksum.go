// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/editlock"
	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

type checksumParams struct {
	CommonParams
	Write bool `flag:"write,w" desc:"rewrite the checksum line of the file in place"`
}

func (a *app) checksumCommand() *cli.Command {
	var params checksumParams

	return &cli.Command{
		Name:    "checksum",
		Summary: "Compute or update the checksum of a database file",
		Description: `Compute the checksum of a database file: the SHA-1 of the file text
with its checksum line removed.

The file is not parsed, so this also works on a file that currently
fails to load. With --write the checksum line is replaced in place and
every other byte of the file is preserved.`,
		Usage: "hwid checksum <database> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("checksum", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid checksum <database>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "checksum")
			if err != nil {
				return err
			}
			path := env.config.DatabasePath(args[0])

			if params.Write {
				lock, err := editlock.Acquire(path)
				if err != nil {
					return err
				}
				defer lock.Release()
				checksum, err := hwiddb.UpdateChecksumFile(path)
				if err != nil {
					return err
				}
				env.logger.Info("updated checksum", "path", path, "checksum", checksum)
				fmt.Fprintln(env.stdout, checksum)
				return nil
			}

			text, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading database %s: %w", path, err)
			}
			fmt.Fprintln(env.stdout, hwiddb.ChecksumForText(text))
			return nil
		},
	}
}
