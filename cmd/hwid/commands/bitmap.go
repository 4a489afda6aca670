// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

type bitmapParams struct {
	CommonParams
	cli.JSONOutput
	ImageID int    `json:"image_id" flag:"image-id" desc:"image id whose pattern to show (default: latest non-RMA image)" default:"-1"`
	MaxBits int    `json:"max_bits" flag:"max-bits" desc:"show the mapping of an identifier truncated to this many bits" default:"-1"`
	Color   string `json:"-" flag:"color" desc:"colour fields: auto, always or never" default:"auto"`
}

// bitmapEntry is one row of the --json output.
type bitmapEntry struct {
	Bit    int    `json:"bit"`
	Field  string `json:"field"`
	Offset int    `json:"offset"`
}

// fieldColors cycles through the basic ANSI colors so adjacent fields
// are distinguishable on a terminal.
var fieldColors = []lipgloss.Color{"2", "3", "4", "5", "6", "1"}

func (a *app) bitmapCommand() *cli.Command {
	var params bitmapParams

	return &cli.Command{
		Name:    "bitmap",
		Summary: "Show which field bit each position of a pattern carries",
		Description: `Print the bit mapping of an encoding pattern: for every position of
the component bit string, the encoded field and the bit of that
field's index it carries.

With --max-bits the mapping is computed for an identifier that was
minted when the pattern was shorter. The chunk that crosses the limit
is read as if it were narrower, the way old identifiers are decoded.`,
		Usage: "hwid bitmap <database> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("bitmap", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid bitmap <database>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "bitmap")
			if err != nil {
				return err
			}
			db, err := env.loadDatabase(args[0])
			if err != nil {
				return err
			}

			selector := imageSelector(params.ImageID)
			var mapping []hwiddb.BitEntry
			if params.MaxBits >= 0 {
				mapping, err = db.GetBitMappingTruncated(selector, params.MaxBits)
			} else {
				mapping, err = db.GetBitMapping(selector)
			}
			if err != nil {
				return err
			}

			entries := make([]bitmapEntry, len(mapping))
			for position, entry := range mapping {
				entries[position] = bitmapEntry{Bit: position, Field: entry.Field, Offset: entry.Offset}
			}
			if done, err := params.EmitJSON(env.stdout, entries); done {
				return err
			}
			renderer, err := newRenderer(env.stdout, params.Color)
			if err != nil {
				return err
			}
			writeBitmap(env.stdout, renderer, entries)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Bit mapping of the latest pattern",
				Command:     "hwid bitmap CHROMEBOOK",
			},
			{
				Description: "How a 12-bit identifier of image 1 decodes",
				Command:     "hwid bitmap CHROMEBOOK --image-id 1 --max-bits 12",
			},
		},
	}
}

// newRenderer returns a lipgloss renderer for w honoring a --color
// value. In auto mode the renderer detects whether w is a terminal.
func newRenderer(w io.Writer, color string) (*lipgloss.Renderer, error) {
	switch color {
	case "auto":
		return lipgloss.NewRenderer(w), nil
	case "always":
		// lipgloss re-detects the profile from the writer unless it is
		// set explicitly after construction.
		renderer := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI256))
		renderer.SetColorProfile(termenv.ANSI256)
		return renderer, nil
	case "never":
		renderer := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
		renderer.SetColorProfile(termenv.Ascii)
		return renderer, nil
	default:
		return nil, fmt.Errorf("--color must be auto, always or never, got %q", color)
	}
}

// writeBitmap renders the mapping as a table.
func writeBitmap(w io.Writer, renderer *lipgloss.Renderer, entries []bitmapEntry) {
	header := renderer.NewStyle().Bold(true)

	width := len("FIELD")
	for _, entry := range entries {
		width = max(width, len(entry.Field))
	}

	colors := map[string]lipgloss.Color{}
	fmt.Fprintln(w, header.Render(fmt.Sprintf("%4s  %-*s  %s", "BIT", width, "FIELD", "OFFSET")))
	for _, entry := range entries {
		color, ok := colors[entry.Field]
		if !ok {
			color = fieldColors[len(colors)%len(fieldColors)]
			colors[entry.Field] = color
		}
		field := renderer.NewStyle().Foreground(color).Render(fmt.Sprintf("%-*s", width, entry.Field))
		fmt.Fprintf(w, "%4d  %s  %6d\n", entry.Bit, field, entry.Offset)
	}
}
