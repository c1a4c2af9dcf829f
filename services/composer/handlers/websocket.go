// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/cccbr/elf/services/composer/datatypes"
	"github.com/cccbr/elf/services/composer/jobs"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// statusInterval matches the composer's own stats refresh cadence.
const statusInterval = 500 * time.Millisecond

// SearchWebSocket handles GET /v1/searches/:id/ws: streams progress
// frames while the search runs and a comps frame whenever the top-K
// buffer changes, finishing with a final frame of each when the worker
// exits. Progress frames are rate-limited so slow consumers see fresh
// figures rather than a backlog.
func SearchWebSocket(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := m.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("websocket client connected", "job_id", job.ID)

		// Drain (and ignore) client messages so close frames are seen.
		clientGone := make(chan struct{})
		go func() {
			defer close(clientGone)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		limiter := rate.NewLimiter(rate.Every(statusInterval), 1)
		ticker := time.NewTicker(statusInterval / 2)
		defer ticker.Stop()

		send := func(frame datatypes.WSFrame) bool {
			if err := ws.WriteJSON(frame); err != nil {
				slog.Warn("failed to write websocket frame", "job_id", job.ID, "error", err)
				return false
			}
			return true
		}

		for {
			select {
			case <-clientGone:
				return
			case <-job.Done():
				status := job.Status()
				send(datatypes.WSFrame{Type: "progress", Status: &status})
				send(datatypes.WSFrame{Type: "comps", Comps: job.Collector.Comps()})
				return
			case <-ticker.C:
				if job.Collector.TakeChanged() {
					if !send(datatypes.WSFrame{Type: "comps", Comps: job.Collector.Comps()}) {
						return
					}
				}
				if limiter.Allow() {
					m.SampleThroughput()
					status := job.Status()
					if !send(datatypes.WSFrame{Type: "progress", Status: &status}) {
						return
					}
				}
			}
		}
	}
}
