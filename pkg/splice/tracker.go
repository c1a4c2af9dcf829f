// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ResponseTime is how often, at most, long-running jobs should check
// their abort and pause status.
const ResponseTime = 300 * time.Millisecond

// Tracker provides cooperative management of lengthy jobs: a progress
// counter scaled against a total duration, sticky abort, pause/resume
// parking, an error slot, and delegate jobs whose progress folds into
// the parent's.
//
// The worker goroutine calls SetProgress and checks Aborted/Paused from
// its inner loop; a monitor goroutine may concurrently read Progress,
// JobName and the error state. Abort and pause flags are atomics, so
// between checks monitor reads may be stale but are never torn.
type Tracker struct {
	mu               sync.Mutex
	cond             *sync.Cond
	totalDuration    int64
	progress         int64
	jobName          string
	errSet           bool
	errMsg           string
	delegate         *Tracker
	delegateDuration int64

	aborted atomic.Bool
	paused  atomic.Bool

	workerMu   sync.Mutex
	workerDone chan struct{}
}

// NewTracker creates a tracker with the given total duration.
func NewTracker(total int, name string) *Tracker {
	t := &Tracker{totalDuration: int64(total), jobName: name}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// JobName returns the name of the currently-running job, preferring any
// active delegate's name.
func (t *Tracker) JobName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.delegate != nil {
		return t.delegate.JobName()
	}
	return t.jobName
}

// SetJobName names the current job for progress displays.
func (t *Tracker) SetJobName(name string) {
	t.mu.Lock()
	t.jobName = name
	t.mu.Unlock()
}

// SetTotalDuration sets the progress value that represents completion.
func (t *Tracker) SetTotalDuration(total int) {
	t.mu.Lock()
	t.totalDuration = int64(total)
	t.mu.Unlock()
}

// Progress returns completion as a percentage 0..100.
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := float64(t.progress) * 100.0
	if t.delegate != nil {
		p += t.delegate.Progress() * float64(t.delegateDuration)
	}
	p /= float64(t.totalDuration)
	if p > 100.0 {
		p = 100.0
	}
	return p
}

// ProgressString formats the percentage with the given number of
// decimal places.
func (t *Tracker) ProgressString(sigFigs int) string {
	p := t.Progress()
	intPart := int(p)
	if sigFigs == 0 {
		return fmt.Sprintf("%d", intPart)
	}
	frac := int((p - float64(intPart)) * math.Pow(10, float64(sigFigs)))
	s := fmt.Sprintf("%d", frac)
	if len(s) < sigFigs {
		s = strings.Repeat("0", sigFigs-len(s)) + s
	}
	return fmt.Sprintf("%d.%s", intPart, s)
}

// SetProgress records absolute progress 0..totalDuration. Setting any
// value terminates a delegate job; setting zero resets abort and pause.
func (t *Tracker) SetProgress(progress int) {
	t.mu.Lock()
	t.endDelegateLocked()
	if int64(progress) >= t.totalDuration {
		t.progress = t.totalDuration
	} else {
		t.progress = int64(progress)
		if progress == 0 {
			t.resetLocked()
		}
	}
	t.mu.Unlock()
}

// StartDelegate attaches a sub-job worth duration progress points of the
// parent job.
func (t *Tracker) StartDelegate(job *Tracker, duration int) {
	t.mu.Lock()
	t.delegate = job
	t.delegateDuration = int64(duration)
	t.mu.Unlock()
	job.Reset()
}

// EndDelegate folds the delegate's allocation into the parent progress
// and propagates any delegate error.
func (t *Tracker) EndDelegate() {
	t.mu.Lock()
	t.endDelegateLocked()
	t.mu.Unlock()
}

func (t *Tracker) endDelegateLocked() {
	if t.delegate == nil {
		return
	}
	t.progress += t.delegateDuration
	if !t.errSet && t.delegate.IsError() {
		t.errSet = true
		t.errMsg = t.delegate.ErrorMsg()
	}
	t.delegate = nil
}

// SetError records a job failure. Abort uses the same slot, so callers
// distinguishing the two should check Aborted as well.
func (t *Tracker) SetError(msg string) {
	t.mu.Lock()
	t.errSet = true
	t.errMsg = msg
	t.mu.Unlock()
}

// IsError reports whether the job failed (or was aborted).
func (t *Tracker) IsError() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errSet
}

// ErrorMsg returns the recorded failure message, if any.
func (t *Tracker) ErrorMsg() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

// Abort requests cooperative termination. The flag is sticky until
// Reset; an aborted job records an "Aborted" error.
func (t *Tracker) Abort() {
	t.aborted.Store(true)
	t.mu.Lock()
	if t.delegate != nil {
		t.delegate.Abort()
	}
	t.errSet = true
	t.errMsg = "Aborted"
	t.mu.Unlock()
	t.cond.Broadcast()
}

// Aborted reports whether an abort has been requested.
func (t *Tracker) Aborted() bool {
	return t.aborted.Load()
}

// Reset clears abort, pause and error state ready for a fresh job.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.resetLocked()
	t.mu.Unlock()
}

func (t *Tracker) resetLocked() {
	t.aborted.Store(false)
	t.paused.Store(false)
	t.errSet = false
	t.errMsg = ""
	if t.delegate != nil {
		t.delegate.Reset()
	}
}

// Pause asks the job to park at its next check.
func (t *Tracker) Pause() {
	t.paused.Store(true)
	t.mu.Lock()
	if t.delegate != nil {
		t.delegate.Pause()
	}
	t.mu.Unlock()
}

// Resume releases a paused job.
func (t *Tracker) Resume() {
	t.paused.Store(false)
	t.mu.Lock()
	if t.delegate != nil {
		t.delegate.Resume()
	}
	t.mu.Unlock()
	t.cond.Broadcast()
}

// Paused reports whether a pause has been requested.
func (t *Tracker) Paused() bool {
	return t.paused.Load()
}

// WaitForResume parks the calling goroutine until Resume or Abort.
// Remains responsive to aborts whilst paused, so callers should check
// Aborted after this returns.
func (t *Tracker) WaitForResume() {
	t.mu.Lock()
	for t.paused.Load() && !t.aborted.Load() {
		t.cond.Wait()
	}
	t.mu.Unlock()
}

// StartWorker runs task on a fresh goroutine, aborting any worker that
// is still running from a previous job.
func (t *Tracker) StartWorker(task func()) {
	t.AbortWorker(ResponseTime)
	t.Reset()
	done := make(chan struct{})
	t.workerMu.Lock()
	t.workerDone = done
	t.workerMu.Unlock()
	go func() {
		defer close(done)
		if t.Aborted() {
			return
		}
		task()
	}()
}

// Finished reports whether no worker is running. Only valid after
// StartWorker has been called at least once.
func (t *Tracker) Finished() bool {
	t.workerMu.Lock()
	done := t.workerDone
	t.workerMu.Unlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// AbortWorker aborts any running worker and waits up to the given
// duration for it to drain. Abort is cooperative only; a worker that
// does not check its flags is left to finish on its own.
func (t *Tracker) AbortWorker(wait time.Duration) {
	t.workerMu.Lock()
	done := t.workerDone
	t.workerMu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
		return
	default:
	}
	t.Abort()
	select {
	case <-done:
	case <-time.After(wait):
	}
}
