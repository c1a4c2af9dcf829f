// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the composer service's HTTP surface.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cccbr/elf/services/composer/datatypes"
	"github.com/cccbr/elf/services/composer/jobs"
	"github.com/cccbr/elf/services/composer/store"
)

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StartSearch handles POST /v1/searches.
func StartSearch(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		job, err := m.Start(&req.SearchConfig)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, jobs.ErrTablesBuilding) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, job.Status())
	}
}

// ListSearches handles GET /v1/searches.
func ListSearches(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"searches": m.List()})
	}
}

// GetSearch handles GET /v1/searches/:id.
func GetSearch(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := m.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, job.Status())
	}
}

// GetSearchComps handles GET /v1/searches/:id/comps, returning the
// current top-K snapshot.
func GetSearchComps(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := m.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, datatypes.CompsResponse{
			ID:    job.ID,
			Comps: job.Collector.Comps(),
		})
	}
}

// AbortSearch handles DELETE /v1/searches/:id. Abort is cooperative and
// sticky: the worker exits at its next check.
func AbortSearch(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Abort(c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		slog.Info("abort requested", "job_id", c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"status": "aborting"})
	}
}

// PauseSearch handles POST /v1/searches/:id/pause.
func PauseSearch(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Pause(c.Param("id")); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "paused"})
	}
}

// ResumeSearch handles POST /v1/searches/:id/resume.
func ResumeSearch(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Resume(c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "running"})
	}
}

// ListArchive handles GET /v1/archive, listing finished searches from
// the durable store.
func ListArchive(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s == nil {
			c.JSON(http.StatusOK, gin.H{"searches": []any{}})
			return
		}
		recs, err := s.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"searches": recs})
	}
}

// GetArchived handles GET /v1/archive/:id.
func GetArchived(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "archive disabled"})
			return
		}
		rec, err := s.Get(c.Param("id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
