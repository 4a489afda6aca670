// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hwid/cmd/hwid/cli"
	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

type showParams struct {
	CommonParams
	cli.JSONOutput
}

// databaseSummary is the --json form of "hwid show".
type databaseSummary struct {
	Project          string           `json:"project"`
	Checksum         string           `json:"checksum"`
	FrameworkVersion int              `json:"framework_version"`
	CanEncode        bool             `json:"can_encode"`
	Images           []imageSummary   `json:"images"`
	Patterns         []patternSummary `json:"patterns"`
	EncodedFields    []fieldSummary   `json:"encoded_fields"`
	Components       []classSummary   `json:"components"`
	Rules            []string         `json:"rules"`
}

type imageSummary struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Pattern int    `json:"pattern"`
}

type patternSummary struct {
	Index     int            `json:"index"`
	ImageIDs  []int          `json:"image_ids"`
	Scheme    string         `json:"encoding_scheme"`
	TotalBits int            `json:"total_bits"`
	Fields    []chunkSummary `json:"fields"`
}

type chunkSummary struct {
	Name string `json:"name"`
	Bits int    `json:"bits"`
}

type fieldSummary struct {
	Name         string   `json:"name"`
	Classes      []string `json:"classes"`
	Combinations int      `json:"combinations"`
	Region       bool     `json:"region,omitempty"`
}

type classSummary struct {
	Class      string `json:"class"`
	Components int    `json:"components"`
	Default    string `json:"default,omitempty"`
	Probeable  bool   `json:"probeable"`
}

func (a *app) showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Summarize the contents of a database",
		Description: `Summarize a database: its image ids, encoding patterns, encoded
fields, component classes and rules.`,
		Usage: "hwid show <database> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "hwid show <database>"); err != nil {
				return err
			}
			env, err := a.open(params.CommonParams, "show")
			if err != nil {
				return err
			}
			db, err := env.loadDatabase(args[0])
			if err != nil {
				return err
			}
			summary, err := summarize(db)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, summary); done {
				return err
			}
			return writeSummary(env.stdout, summary)
		},
	}
}

func summarize(db *hwiddb.Database) (databaseSummary, error) {
	summary := databaseSummary{
		Project:          db.Project(),
		Checksum:         db.Checksum(),
		FrameworkVersion: db.FrameworkVersion(),
		CanEncode:        db.CanEncode(),
	}
	for _, imageID := range db.ImageIDs() {
		name, err := db.GetImageName(imageID)
		if err != nil {
			return databaseSummary{}, err
		}
		index, err := db.GetPatternIndex(hwiddb.ByImageID(imageID))
		if err != nil {
			return databaseSummary{}, err
		}
		summary.Images = append(summary.Images, imageSummary{ID: imageID, Name: name, Pattern: index})
	}
	for _, record := range db.Patterns() {
		pattern := patternSummary{Index: record.Index, ImageIDs: record.ImageIDs, Scheme: string(record.Scheme)}
		for _, chunk := range record.Fields {
			pattern.Fields = append(pattern.Fields, chunkSummary{Name: chunk.Name, Bits: chunk.BitLength})
			pattern.TotalBits += chunk.BitLength
		}
		summary.Patterns = append(summary.Patterns, pattern)
	}
	for _, name := range db.EncodedFieldNames() {
		classes, err := db.GetComponentClassesOfField(name)
		if err != nil {
			return databaseSummary{}, err
		}
		rows, err := db.GetEncodedField(name)
		if err != nil {
			return databaseSummary{}, err
		}
		summary.EncodedFields = append(summary.EncodedFields, fieldSummary{
			Name:         name,
			Classes:      classes,
			Combinations: len(rows),
			Region:       db.IsRegionField(name),
		})
	}
	for _, class := range db.ComponentClasses() {
		entry := classSummary{
			Class:      class,
			Components: len(db.GetComponents(class)),
			Probeable:  db.IsProbeable(class),
		}
		if name, ok := db.GetDefaultComponent(class); ok {
			entry.Default = name
		}
		summary.Components = append(summary.Components, entry)
	}
	for _, rule := range db.Rules() {
		summary.Rules = append(summary.Rules, rule.Name)
	}
	return summary, nil
}

func writeSummary(w io.Writer, summary databaseSummary) error {
	fmt.Fprintf(w, "Project:   %s\n", summary.Project)
	fmt.Fprintf(w, "Checksum:  %s\n", summary.Checksum)
	if summary.FrameworkVersion > 0 {
		fmt.Fprintf(w, "Framework: %d\n", summary.FrameworkVersion)
	}
	if !summary.CanEncode {
		fmt.Fprintln(w, "Encoding:  disabled (ambiguous entries)")
	}

	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nIMAGE\tNAME\tPATTERN")
	for _, image := range summary.Images {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", image.ID, image.Name, image.Pattern)
	}

	fmt.Fprintln(tw, "\nPATTERN\tSCHEME\tBITS\tFIELDS")
	for _, pattern := range summary.Patterns {
		chunks := make([]string, 0, len(pattern.Fields))
		for _, chunk := range pattern.Fields {
			chunks = append(chunks, fmt.Sprintf("%s:%d", chunk.Name, chunk.Bits))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", pattern.Index, pattern.Scheme, pattern.TotalBits, strings.Join(chunks, " "))
	}

	fmt.Fprintln(tw, "\nFIELD\tCLASSES\tCOMBINATIONS")
	for _, field := range summary.EncodedFields {
		name := field.Name
		if field.Region {
			name += " (region)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", name, strings.Join(field.Classes, ","), field.Combinations)
	}

	fmt.Fprintln(tw, "\nCLASS\tCOMPONENTS\tDEFAULT")
	for _, class := range summary.Components {
		name := class.Class
		if !class.Probeable {
			name += " (not probeable)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, class.Components, class.Default)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nRules: %d\n", len(summary.Rules))
	return nil
}
