// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/bitpack"
	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

type encodeParams struct {
	CommonParams
	ImageID    int      `flag:"image-id" desc:"image id to encode for (default: latest non-RMA image)" default:"-1"`
	Components []string `flag:"component,c" desc:"class=name of an installed component, repeatable; class= marks the class absent"`
}

type decodeParams struct {
	CommonParams
	cli.JSONOutput
	ImageID int `flag:"image-id" desc:"image id the bit string was minted for (default: latest non-RMA image)" default:"-1"`
}

// resolveImageID turns the -1 "latest" flag value into a concrete
// image id.
func resolveImageID(db *hwiddb.Database, imageID int) (int, error) {
	if imageID >= 0 {
		return imageID, nil
	}
	latest, ok := db.MaxImageID()
	if !ok {
		return 0, fmt.Errorf("%s defines no image ids", db.Project())
	}
	return latest, nil
}

// parseSelection parses repeated class=name arguments.
func parseSelection(arguments []string) (bitpack.Selection, error) {
	selection := bitpack.Selection{}
	for _, argument := range arguments {
		class, name, ok := strings.Cut(argument, "=")
		if !ok || class == "" {
			return nil, fmt.Errorf("--component %q: want class=name", argument)
		}
		if _, seen := selection[class]; !seen {
			selection[class] = []string{}
		}
		if name != "" {
			selection[class] = append(selection[class], name)
		}
	}
	return selection, nil
}

func (a *app) encodeCommand() *cli.Command {
	var params encodeParams

	return &cli.Command{
		Name:    "encode",
		Summary: "Encode installed components into a component bit string",
		Description: `Encode a set of installed components into the component bit string
of an image's encoding pattern.

Each --component names one installed component as class=name. Classes
not mentioned are absent. The database must be able to mint new
identifiers.`,
		Usage: "hwid encode <database> -c class=name... [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("encode", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid encode <database> -c class=name..."); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "encode")
			if err != nil {
				return err
			}
			db, err := env.loadDatabase(args[0])
			if err != nil {
				return err
			}
			selection, err := parseSelection(params.Components)
			if err != nil {
				return err
			}
			imageID, err := resolveImageID(db, params.ImageID)
			if err != nil {
				return err
			}
			bits, err := bitpack.Encode(db, imageID, selection)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.stdout, bits)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Encode for the latest image",
				Command:     "hwid encode CHROMEBOOK -c cpu=cpu_a -c storage=ssd_128 -c region=us",
			},
		},
	}
}

func (a *app) decodeCommand() *cli.Command {
	var params decodeParams

	return &cli.Command{
		Name:    "decode",
		Summary: "Decode a component bit string into components",
		Description: `Decode a component bit string back into the field indices and the
components they encode.

The bit string may be shorter than the current pattern: identifiers
minted before the pattern grew decode as they did when minted.`,
		Usage: "hwid decode <database> <bits> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("decode", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 2, "hwid decode <database> <bits>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "decode")
			if err != nil {
				return err
			}
			db, err := env.loadDatabase(args[0])
			if err != nil {
				return err
			}
			imageID, err := resolveImageID(db, params.ImageID)
			if err != nil {
				return err
			}
			decoded, err := bitpack.Decode(db, imageID, args[1])
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, decoded); done {
				return err
			}

			fields := make([]string, 0, len(decoded.Indices))
			for field := range decoded.Indices {
				fields = append(fields, field)
			}
			slices.Sort(fields)
			for _, field := range fields {
				fmt.Fprintf(env.stdout, "%s: %d\n", field, decoded.Indices[field])
			}
			classes := make([]string, 0, len(decoded.Components))
			for class := range decoded.Components {
				classes = append(classes, class)
			}
			slices.Sort(classes)
			for _, class := range classes {
				names := decoded.Components[class]
				if len(names) == 0 {
					fmt.Fprintf(env.stdout, "  %s = (none)\n", class)
					continue
				}
				fmt.Fprintf(env.stdout, "  %s = %s\n", class, strings.Join(names, ", "))
			}
			return nil
		},
	}
}
