// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogRecorder is a slog.Handler that keeps record messages in memory.
type LogRecorder struct {
	mu       sync.Mutex
	messages []string
}

// NewLogRecorder returns a logger writing into a new recorder.
//
//	logger, recorder := testutil.NewLogRecorder()
//	db.AddComponent(...)
//	if len(recorder.Messages()) == 0 { ... }
func NewLogRecorder() (*slog.Logger, *LogRecorder) {
	recorder := &LogRecorder{}
	return slog.New(recorder), recorder
}

// Messages returns the recorded messages in order.
func (r *LogRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, record.Message)
	return nil
}

func (r *LogRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }

func (r *LogRecorder) WithGroup(string) slog.Handler { return r }
