// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jobs manages search jobs for the composer service: one
// composing worker at a time over the process-wide node table, with
// uuid-keyed status, cooperative abort, pause/resume and archival of
// finished searches.
package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cccbr/elf/pkg/splice"
	"github.com/cccbr/elf/services/composer/datatypes"
	"github.com/cccbr/elf/services/composer/observability"
	"github.com/cccbr/elf/services/composer/store"
)

// ErrTablesBuilding is returned when a search is requested before the
// one-time node table build has completed.
var ErrTablesBuilding = errors.New("cannot compose yet - table building still in progress")

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("no such search job")

// Job is one search: configuration, the composer worker and its output
// collector, plus terminal state once the worker drains.
type Job struct {
	ID        string
	Config    splice.SearchConfig
	Runner    *splice.Runner
	Composer  *splice.Composer
	Collector *splice.Collector
	CreatedAt time.Time

	mu       sync.Mutex
	state    string
	errMsg   string
	done     chan struct{}
}

// Done returns a channel closed when the worker exits.
func (j *Job) Done() <-chan struct{} { return j.done }

// Status snapshots the job for monitors. Word-sized counters only, so
// between refreshes the figures may be stale but never torn.
func (j *Job) Status() datatypes.JobStatus {
	j.mu.Lock()
	state := j.state
	errMsg := j.errMsg
	j.mu.Unlock()
	c := j.Composer
	st := datatypes.JobStatus{
		ID:            j.ID,
		State:         state,
		JobName:       j.Runner.Tracker.JobName(),
		Progress:      j.Runner.Tracker.Progress(),
		CreatedAt:     j.CreatedAt,
		NComps:        c.NComps(),
		NodesSearched: c.NNodes(),
		NodesPerSec:   c.NodesPerSec(),
		CompsPerSec:   c.CompsPerSec(),
		BestScore:     c.BestScore(),
		BestMusic:     c.BestMusic(),
		BestCOM:       c.BestCOM(),
		BestBalance:   c.BestBalance(),
		Error:         errMsg,
	}
	switch state {
	case datatypes.StateRunning:
		if c.IsComposing() {
			st.TimeLeft = c.EstimateTimeLeft()
		}
	case datatypes.StatePaused:
		st.TimeLeft = ">paused<"
	case datatypes.StateFinished, datatypes.StateAborted:
		st.SearchTime = c.SearchTime()
	}
	return st
}

func (j *Job) setState(state, errMsg string) {
	j.mu.Lock()
	j.state = state
	j.errMsg = errMsg
	j.mu.Unlock()
}

// Manager owns the shared tables and library and runs one job at a
// time. Starting a new search aborts any search still running, exactly
// as an interactive host would.
type Manager struct {
	mu      sync.Mutex
	tables  *splice.Tables
	library *splice.Library
	archive *store.Store
	metrics *observability.Metrics
	logger  *slog.Logger

	jobs    map[string]*Job
	current *Job

	indexMu sync.RWMutex
	index   []splice.LibraryEntry
}

// NewManager wires a manager over the shared tables. archive may be nil
// to disable persistence.
func NewManager(library *splice.Library, tables *splice.Tables, archive *store.Store, metrics *observability.Metrics, logger *slog.Logger) *Manager {
	return &Manager{
		tables:  tables,
		library: library,
		archive: archive,
		metrics: metrics,
		logger:  logger,
		jobs:    map[string]*Job{},
	}
}

// Library returns the active method library.
func (m *Manager) Library() *splice.Library { return m.library }

// SetIndex publishes a freshly-loaded library index.
func (m *Manager) SetIndex(entries []splice.LibraryEntry) {
	m.indexMu.Lock()
	m.index = entries
	m.indexMu.Unlock()
}

// Index returns the current library index.
func (m *Manager) Index() []splice.LibraryEntry {
	m.indexMu.RLock()
	defer m.indexMu.RUnlock()
	out := make([]splice.LibraryEntry, len(m.index))
	copy(out, m.index)
	return out
}

// Start validates the configuration, aborts any running job and spawns
// the composing worker.
func (m *Manager) Start(cfg *splice.SearchConfig) (*Job, error) {
	if !m.tables.IsBuilt() {
		return nil, ErrTablesBuilding
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// A previous worker must drain before the tables are re-prepared
	// for the new method set.
	if m.current != nil {
		m.current.Runner.Abort()
		select {
		case <-m.current.done:
		case <-time.After(10 * splice.ResponseTime):
			m.logger.Warn("previous search did not drain in time", "job_id", m.current.ID)
		}
	}

	composer, err := splice.NewSearch(m.library, m.tables, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start search: %w", err)
	}
	keep := cfg.CompsToKeep
	if keep == 0 {
		keep = 10
	}
	job := &Job{
		ID:        uuid.New().String(),
		Config:    *cfg,
		Runner:    splice.NewRunner(m.tables, composer),
		Composer:  composer,
		Collector: splice.NewCollector(keep, composer),
		CreatedAt: time.Now(),
		state:     datatypes.StateRunning,
		done:      make(chan struct{}),
	}
	m.jobs[job.ID] = job
	m.current = job
	m.metrics.SearchesStarted.Inc()
	m.metrics.ActiveSearches.Inc()
	m.logger.Info("search started", "job_id", job.ID,
		"methods", cfg.Methods, "leads_per_part", cfg.LeadsPerPart, "parts", cfg.Parts)

	go m.run(job)
	return job, nil
}

// run drives the table passes and the search, then records the outcome.
func (m *Manager) run(job *Job) {
	start := time.Now()
	defer close(job.done)
	defer m.metrics.ActiveSearches.Dec()

	err := job.Runner.Run(job.Collector)

	status := datatypes.StateFinished
	errMsg := ""
	switch {
	case err != nil:
		status = datatypes.StateError
		errMsg = err.Error()
		m.logger.Error("search failed", "job_id", job.ID, "error", err)
	case job.Composer.Aborted() || job.Runner.Tracker.Aborted():
		status = datatypes.StateAborted
		m.logger.Info("search aborted", "job_id", job.ID, "comps", job.Composer.NComps())
	default:
		m.logger.Info("search finished", "job_id", job.ID,
			"comps", job.Composer.NComps(), "nodes", job.Composer.NNodes(),
			"best_score", job.Composer.BestScore(), "time", job.Composer.SearchTime())
	}
	job.setState(status, errMsg)

	m.metrics.SearchesFinished.WithLabelValues(status).Inc()
	m.metrics.SearchDurationSeconds.WithLabelValues(status).Observe(time.Since(start).Seconds())
	m.metrics.CompsFoundTotal.Add(float64(job.Composer.NComps()))
	m.metrics.NodesSearchedTotal.Add(float64(job.Composer.NNodes()))
	m.metrics.NodesPerSecond.Set(0)

	if m.archive != nil && status != datatypes.StateError {
		rec := &datatypes.ArchivedSearch{
			ID:         job.ID,
			Config:     job.Config,
			Status:     job.Status(),
			Comps:      job.Collector.Comps(),
			FinishedAt: time.Now(),
		}
		if err := m.archive.Save(rec); err != nil {
			m.logger.Warn("failed to archive search", "job_id", job.ID, "error", err)
		}
	}
}

// SampleThroughput publishes the running search's lead throughput.
// Called periodically by the service.
func (m *Manager) SampleThroughput() {
	m.mu.Lock()
	job := m.current
	m.mu.Unlock()
	if job == nil {
		return
	}
	select {
	case <-job.done:
	default:
		m.metrics.NodesPerSecond.Set(float64(job.Composer.NodesPerSec()))
	}
}

// Get returns a job by id.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job, nil
}

// List snapshots every job's status, newest first.
func (m *Manager) List() []datatypes.JobStatus {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()
	out := make([]datatypes.JobStatus, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Status())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Abort cooperatively stops a job. Safe to call on finished jobs.
func (m *Manager) Abort(id string) error {
	job, err := m.Get(id)
	if err != nil {
		return err
	}
	job.Runner.Abort()
	return nil
}

// Pause parks a running job's worker.
func (m *Manager) Pause(id string) error {
	job, err := m.Get(id)
	if err != nil {
		return err
	}
	if !job.Composer.IsComposing() {
		return fmt.Errorf("search %s is not composing", id)
	}
	job.Composer.Pause()
	job.setState(datatypes.StatePaused, "")
	return nil
}

// Resume releases a paused job.
func (m *Manager) Resume(id string) error {
	job, err := m.Get(id)
	if err != nil {
		return err
	}
	job.Composer.Resume()
	job.setState(datatypes.StateRunning, "")
	return nil
}

// AbortAll stops everything; used at shutdown.
func (m *Manager) AbortAll() {
	m.mu.Lock()
	job := m.current
	m.mu.Unlock()
	if job != nil {
		job.Runner.Abort()
		select {
		case <-job.done:
		case <-time.After(2 * splice.ResponseTime):
		}
	}
}
