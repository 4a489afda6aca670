// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the command tree: either a group that routes
// to [Command.Subcommands], or a leaf with a Run function, or both (Run
// then handles arguments that name no subcommand).
//
// A Command is a plain value. The tree is usually built once by a
// constructor function and executed once per process, so nothing here
// is safe for concurrent Execute calls.
type Command struct {
	// Name is the word the user types to reach this command.
	Name string

	// Aliases are alternative words that also select this command.
	// They are listed in help but never suggested for typos.
	Aliases []string

	// Summary is the one-line text shown next to the name in the
	// parent's command listing.
	Summary string

	// Description is the full help text. Summary is shown instead
	// when it is empty.
	Description string

	// Usage overrides the synthesized "Usage:" line. Leaf commands
	// that take positional arguments should set it.
	Usage string

	// Examples are printed at the end of the help output.
	Examples []Example

	// Flags builds the flag set of the command. It is called once per
	// parse and once per help rendering, so it must return a fresh
	// set each time; [FlagsFromParams] does. Nil means the command
	// takes no flags and receives its arguments untouched.
	Flags func() *pflag.FlagSet

	// Subcommands are selected by the first positional argument.
	Subcommands []*Command

	// Run receives the positional arguments left after flag parsing.
	Run func(args []string) error

	// HelpOutput receives help text. When nil the nearest ancestor's
	// writer is used, and os.Stderr at the root.
	HelpOutput io.Writer

	// parent links back up the tree while a command line is being
	// dispatched; it gives help and errors the full command path.
	parent *Command
}

// Example is one entry of the "Examples:" help section.
type Example struct {
	// Description is printed as a comment line above the command.
	Description string
	// Command is the literal command line.
	Command string
}

// errSubcommandRequired is returned when a group is run without naming
// one of its subcommands. The group's help has already been printed.
var errSubcommandRequired = errors.New("subcommand required")

// Execute runs the command line args against the tree rooted at c. A
// leading -h, --help or "help" prints help for the command reached so
// far and succeeds.
func (c *Command) Execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.helpOutput())
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if sub := c.findSubcommand(args[0]); sub != nil {
			sub.parent = c
			return sub.Execute(args[1:])
		}
		if c.Run == nil {
			return c.unknownCommandError(args[0])
		}
	}

	if c.Run == nil {
		c.PrintHelp(c.helpOutput())
		if len(c.Subcommands) == 0 {
			return fmt.Errorf("no action defined for %q", c.fullName())
		}
		if len(args) == 0 {
			return errSubcommandRequired
		}
		return fmt.Errorf("%w (got flag %q)", errSubcommandRequired, args[0])
	}

	positional, err := c.parseFlags(args)
	if err != nil {
		return err
	}
	return c.Run(positional)
}

// findSubcommand returns the direct subcommand selected by word, by
// name or alias.
func (c *Command) findSubcommand(word string) *Command {
	for _, sub := range c.Subcommands {
		if sub.Name == word || slices.Contains(sub.Aliases, word) {
			return sub
		}
	}
	return nil
}

func (c *Command) unknownCommandError(word string) error {
	names := make([]string, len(c.Subcommands))
	for index, sub := range c.Subcommands {
		names[index] = sub.Name
	}
	if suggestion := closest(word, names); suggestion != "" {
		return fmt.Errorf("unknown command %q (did you mean %q?)%s", word, suggestion, c.helpHint())
	}
	return fmt.Errorf("unknown command %q%s", word, c.helpHint())
}

// parseFlags parses args against a fresh flag set and returns the
// positional arguments. pflag's own error printing is silenced; parse
// errors come back with a "did you mean" hint for mistyped flags.
func (c *Command) parseFlags(args []string) ([]string, error) {
	if c.Flags == nil {
		return args, nil
	}
	flagSet := c.Flags()
	flagSet.SetOutput(io.Discard)
	err := flagSet.Parse(args)
	if err == nil {
		return flagSet.Args(), nil
	}

	message := err.Error()
	if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand flag") {
		// The failed parse may have set some flags; suggest against a
		// clean set.
		if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
			return nil, fmt.Errorf("%s (did you mean %s?)%s", message, suggestion, c.helpHint())
		}
	}
	return nil, fmt.Errorf("%s%s", message, c.helpHint())
}

// helpHint is the trailer appended to usage errors.
func (c *Command) helpHint() string {
	return fmt.Sprintf("\n\nRun '%s --help' for usage.", c.fullName())
}

// PrintHelp writes the help text of c to w: description, usage line,
// subcommands, flags and examples, in that order.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	switch {
	case c.Description != "":
		fmt.Fprintf(w, "%s\n\n", c.Description)
	case c.Summary != "":
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	usage := c.Usage
	if usage == "" {
		usage = name + " [flags]"
		if len(c.Subcommands) > 0 {
			usage = name + " <command> [flags]"
		}
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", usage)

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			label := sub.Name
			if len(sub.Aliases) > 0 {
				label += " (" + strings.Join(sub.Aliases, ", ") + ")"
			}
			fmt.Fprintf(table, "  %s\t%s\n", label, sub.Summary)
		}
		table.Flush()
	}

	if c.Flags != nil {
		if usages := c.Flags().FlagUsages(); usages != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", usages)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description == "" {
				fmt.Fprintf(w, "  %s\n", example.Command)
				continue
			}
			fmt.Fprintf(w, "  # %s\n  %s\n\n", example.Description, example.Command)
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

func (c *Command) helpOutput() io.Writer {
	for command := c; command != nil; command = command.parent {
		if command.HelpOutput != nil {
			return command.HelpOutput
		}
	}
	return os.Stderr
}

// fullName is the command path from the root, such as
// "hwid snapshot list".
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}
