// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerProgress(t *testing.T) {
	tr := NewTracker(200, "job")
	assert.Equal(t, "job", tr.JobName())
	assert.Equal(t, 0.0, tr.Progress())

	tr.SetProgress(50)
	assert.InDelta(t, 25.0, tr.Progress(), 1e-9)

	tr.SetProgress(1000)
	assert.Equal(t, 100.0, tr.Progress())

	assert.Equal(t, "100.000", tr.ProgressString(3))
	tr.SetProgress(50)
	assert.Equal(t, "25.00", tr.ProgressString(2))
	assert.Equal(t, "25", tr.ProgressString(0))
}

func TestTrackerDelegates(t *testing.T) {
	parent := NewTracker(2, "parent")
	sub := NewTracker(100, "sub")

	parent.StartDelegate(sub, 1)
	assert.Equal(t, "sub", parent.JobName())
	sub.SetProgress(50)
	assert.InDelta(t, 25.0, parent.Progress(), 1e-9)

	parent.EndDelegate()
	assert.InDelta(t, 50.0, parent.Progress(), 1e-9)
	assert.Equal(t, "parent", parent.JobName())

	t.Run("delegate errors propagate", func(t *testing.T) {
		sub2 := NewTracker(10, "sub2")
		parent.StartDelegate(sub2, 1)
		sub2.SetError("boom")
		parent.EndDelegate()
		assert.True(t, parent.IsError())
		assert.Equal(t, "boom", parent.ErrorMsg())
	})
}

func TestTrackerAbort(t *testing.T) {
	tr := NewTracker(100, "job")
	assert.False(t, tr.Aborted())
	tr.Abort()
	assert.True(t, tr.Aborted())
	assert.True(t, tr.IsError())
	assert.Equal(t, "Aborted", tr.ErrorMsg())

	tr.Reset()
	assert.False(t, tr.Aborted())
	assert.False(t, tr.IsError())
}

func TestTrackerPauseResume(t *testing.T) {
	tr := NewTracker(100, "job")
	tr.Pause()
	require.True(t, tr.Paused())

	released := make(chan struct{})
	go func() {
		tr.WaitForResume()
		close(released)
	}()
	select {
	case <-released:
		t.Fatal("WaitForResume returned while paused")
	case <-time.After(50 * time.Millisecond):
	}
	tr.Resume()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("WaitForResume did not release on resume")
	}
}

func TestTrackerWorker(t *testing.T) {
	tr := NewTracker(100, "job")
	started := make(chan struct{})
	tr.StartWorker(func() {
		close(started)
		for !tr.Aborted() {
			time.Sleep(5 * time.Millisecond)
		}
	})
	<-started
	assert.False(t, tr.Finished())
	tr.AbortWorker(time.Second)
	assert.True(t, tr.Finished())
}
