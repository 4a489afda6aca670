// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

type EmbeddedParams struct {
	Config string `flag:"config" desc:"config file"`
}

type testParams struct {
	EmbeddedParams
	JSONOutput
	ImageID    int      `flag:"image-id" desc:"image id" default:"-1"`
	Output     string   `flag:"output,o" desc:"output path"`
	Components []string `flag:"component,c" desc:"class=name"`
	DryRun     bool     `flag:"dry-run" desc:"do not write" default:"true"`
	Ignored    string
}

func TestFlagsFromParams(t *testing.T) {
	var params testParams
	flagSet := FlagsFromParams("test", &params)

	if params.ImageID != -1 || !params.DryRun {
		t.Errorf("defaults not applied: %+v", params)
	}
	err := flagSet.Parse([]string{
		"--config", "hwid.yaml", "--json", "--image-id", "3",
		"-o", "out.yaml", "-c", "cpu=cpu_a", "-c", "storage=ssd", "--dry-run=false", "extra",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Config != "hwid.yaml" || !params.OutputJSON || params.ImageID != 3 || params.Output != "out.yaml" || params.DryRun {
		t.Errorf("parsed params: %+v", params)
	}
	if strings.Join(params.Components, ";") != "cpu=cpu_a;storage=ssd" {
		t.Errorf("Components = %v", params.Components)
	}
	if flagSet.Lookup("ignored") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlagsRejectsNonStruct(t *testing.T) {
	value := 3
	if err := BindFlags(&value, nil); err == nil {
		t.Error("BindFlags accepted a non-struct")
	}
}

func TestEmitJSON(t *testing.T) {
	var output JSONOutput
	var buffer bytes.Buffer
	if done, err := output.EmitJSON(&buffer, []string(nil)); done || err != nil {
		t.Fatalf("EmitJSON without --json: got (%v, %v)", done, err)
	}
	output.OutputJSON = true
	if done, err := output.EmitJSON(&buffer, []string(nil)); !done || err != nil {
		t.Fatalf("EmitJSON with --json: got (%v, %v)", done, err)
	}
	if got := strings.TrimSpace(buffer.String()); got != "[]" {
		t.Errorf("nil slice encoded as %q, want []", got)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	tests := []struct {
		terminal bool
		format   string
		wantJSON bool
	}{
		{terminal: true, format: "auto", wantJSON: false},
		{terminal: false, format: "auto", wantJSON: true},
		{terminal: false, format: "text", wantJSON: false},
		{terminal: true, format: "json", wantJSON: true},
	}
	for _, test := range tests {
		var buffer bytes.Buffer
		NewLogger(&buffer, test.terminal, slog.LevelInfo, test.format).Info("hello")
		isJSON := strings.HasPrefix(buffer.String(), "{")
		if isJSON != test.wantJSON {
			t.Errorf("terminal=%v format=%s: output %q, want JSON=%v", test.terminal, test.format, buffer.String(), test.wantJSON)
		}
	}

	var buffer bytes.Buffer
	NewLogger(&buffer, false, slog.LevelWarn, "json").Info("dropped")
	if buffer.Len() != 0 {
		t.Errorf("info record logged at warn level: %q", buffer.String())
	}
}
