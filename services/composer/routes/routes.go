// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes registers the composer service's HTTP routes.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cccbr/elf/services/composer/handlers"
	"github.com/cccbr/elf/services/composer/jobs"
	"github.com/cccbr/elf/services/composer/store"
)

// SetupRoutes attaches every handler to the router.
func SetupRoutes(router *gin.Engine, manager *jobs.Manager, archive *store.Store) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		searches := v1.Group("/searches")
		{
			searches.POST("", handlers.StartSearch(manager))
			searches.GET("", handlers.ListSearches(manager))
			searches.GET("/:id", handlers.GetSearch(manager))
			searches.GET("/:id/comps", handlers.GetSearchComps(manager))
			searches.DELETE("/:id", handlers.AbortSearch(manager))
			searches.POST("/:id/pause", handlers.PauseSearch(manager))
			searches.POST("/:id/resume", handlers.ResumeSearch(manager))
			searches.GET("/:id/ws", handlers.SearchWebSocket(manager))
		}
		library := v1.Group("/library")
		{
			library.GET("", handlers.ListLibrary(manager))
			library.POST("", handlers.AddMethod(manager))
			library.POST("/zip", handlers.UploadLibraryZip(manager))
			library.GET("/index", handlers.LibraryIndex(manager))
		}
		archiveGroup := v1.Group("/archive")
		{
			archiveGroup.GET("", handlers.ListArchive(archive))
			archiveGroup.GET("/:id", handlers.GetArchived(archive))
		}
	}
}
