// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockAdvance(t *testing.T) {
	t.Parallel()

	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now: got %v, want %v", got, epoch)
	}
	c.Advance(90 * time.Second)
	if got, want := c.Now(), epoch.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("Now after Advance: got %v, want %v", got, want)
	}
	c.Set(epoch.Add(-time.Hour))
	if got, want := c.Now(), epoch.Add(-time.Hour); !got.Equal(want) {
		t.Errorf("Now after Set: got %v, want %v", got, want)
	}
}

func TestFakeClockAdvanceNegativePanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("Advance(-1) did not panic")
		}
	}()
	Fake(epoch).Advance(-1)
}

func TestRealClockMovesForward(t *testing.T) {
	t.Parallel()

	c := Real()
	first := c.Now()
	if second := c.Now(); second.Before(first) {
		t.Errorf("Real clock went backwards: %v then %v", first, second)
	}
}
