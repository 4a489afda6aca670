// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
)

// RequireContains fails the test unless text contains substring.
//
//	testutil.RequireContains(t, output, "cpu_field", "bitmap output")
func RequireContains(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, text, substring string, msgAndArgs ...any) {
	t.Helper()
	if !strings.Contains(text, substring) {
		t.Fatalf("%s: %q does not contain %q", formatMessage(msgAndArgs), text, substring)
	}
}

// RequireNotContains fails the test if text contains substring.
func RequireNotContains(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, text, substring string, msgAndArgs ...any) {
	t.Helper()
	if strings.Contains(text, substring) {
		t.Fatalf("%s: %q unexpectedly contains %q", formatMessage(msgAndArgs), text, substring)
	}
}

// formatMessage formats optional message arguments into a string.
// Accepts either a single string or a format string followed by args.
func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "(no message)"
	}
	if len(msgAndArgs) == 1 {
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%v", msgAndArgs)
}
