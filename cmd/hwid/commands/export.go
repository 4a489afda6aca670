// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
)

type exportParams struct {
	CommonParams
	Output string `flag:"output,o" desc:"write to this file instead of stdout"`
	Color  string `flag:"color" desc:"highlight YAML on stdout: auto, always or never" default:"auto"`
}

func (a *app) exportCommand() *cli.Command {
	var params exportParams

	return &cli.Command{
		Name:    "export",
		Summary: "Re-serialize a database in canonical form",
		Description: `Load a database and write it back out in canonical form with a fresh
checksum. Use it to normalize a hand-edited file or to inspect what a
database looks like after loading.

On a terminal the YAML is syntax highlighted.`,
		Usage: "hwid export <database> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("export", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid export <database>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "export")
			if err != nil {
				return err
			}
			db, err := env.loadDatabase(args[0])
			if err != nil {
				return err
			}

			if params.Output != "" {
				if err := db.SaveFile(params.Output); err != nil {
					return err
				}
				env.logger.Info("exported database", "project", db.Project(), "path", params.Output)
				return nil
			}

			text, err := db.Marshal()
			if err != nil {
				return err
			}
			var highlight bool
			switch params.Color {
			case "always":
				highlight = true
			case "never":
			case "auto":
				highlight = cli.IsTerminal(env.stdout)
			default:
				return fmt.Errorf("--color must be auto, always or never, got %q", params.Color)
			}
			if highlight {
				return quick.Highlight(env.stdout, string(text), "yaml", "terminal256", "monokai")
			}
			_, err = env.stdout.Write(text)
			return err
		},
	}
}
