// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates a structured logger writing to w. Format "text"
// and "json" select the handler directly. Any other format ("auto")
// uses slog.TextHandler when w is a terminal, for human-readable
// output, and slog.JSONHandler when it is piped or redirected (CI,
// scripts), for machine-parseable output.
func NewLogger(w io.Writer, terminal bool, level slog.Level, format string) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	useText := terminal
	switch format {
	case "text":
		useText = true
	case "json":
		useText = false
	}
	if useText {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// IsTerminal reports whether w is a terminal. Colour and syntax
// highlighting are only applied to terminals.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
