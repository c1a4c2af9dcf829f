// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request and response types of the
// composer service API.
package datatypes

import (
	"time"

	"github.com/cccbr/elf/pkg/splice"
)

// Job states.
const (
	StateTableBuild = "building_tables"
	StateRunning    = "running"
	StatePaused     = "paused"
	StateFinished   = "finished"
	StateAborted    = "aborted"
	StateError      = "error"
)

// SearchRequest is the body of POST /v1/searches.
type SearchRequest struct {
	splice.SearchConfig `yaml:",inline"`
}

// JobStatus is the monitor's view of a search job. Between updates the
// figures may be slightly stale but are internally consistent.
type JobStatus struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	JobName   string    `json:"jobName"`
	Progress  float64   `json:"progress"`
	TimeLeft  string    `json:"timeLeft,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	NComps      int   `json:"comps"`
	NodesSearched int64 `json:"nodesSearched"`
	NodesPerSec int   `json:"nodesPerSec"`
	CompsPerSec int   `json:"compsPerSec"`

	BestScore   int `json:"bestScore"`
	BestMusic   int `json:"bestMusic"`
	BestCOM     int `json:"bestCOM"`
	BestBalance int `json:"bestBalance"`

	SearchTime string `json:"searchTime,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CompsResponse carries a snapshot of a job's top compositions.
type CompsResponse struct {
	ID    string               `json:"id"`
	Comps []*splice.OutputComp `json:"comps"`
}

// LibraryMethod is one method of the active library as listed by the
// API.
type LibraryMethod struct {
	Name     string `json:"name"`
	Abbrev   string `json:"abbrev"`
	Notation string `json:"notation"`
	Leadhead string `json:"leadhead"`
}

// AddMethodRequest is the body of POST /v1/library.
type AddMethodRequest struct {
	Name     string `json:"name" binding:"required"`
	Abbrev   string `json:"abbrev" binding:"required"`
	Notation string `json:"notation" binding:"required"`
}

// IndexEntry is one method of a loaded library index file.
type IndexEntry struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Notation string `json:"notation"`
}

// WSFrame is one websocket message: a progress update or a fresh top-K
// snapshot.
type WSFrame struct {
	Type   string               `json:"type"` // "progress" or "comps"
	Status *JobStatus           `json:"status,omitempty"`
	Comps  []*splice.OutputComp `json:"comps,omitempty"`
}

// ArchivedSearch is the durable record of a finished search.
type ArchivedSearch struct {
	ID         string               `json:"id"`
	Config     splice.SearchConfig  `json:"config"`
	Status     JobStatus            `json:"status"`
	Comps      []*splice.OutputComp `json:"comps"`
	FinishedAt time.Time            `json:"finishedAt"`
}
