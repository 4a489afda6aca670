// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/version"
)

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "hwid version"); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "hwid %s\n", version.Full())
			return nil
		},
	}
}
