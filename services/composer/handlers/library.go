// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cccbr/elf/pkg/splice"
	"github.com/cccbr/elf/pkg/validation"
	"github.com/cccbr/elf/services/composer/datatypes"
	"github.com/cccbr/elf/services/composer/jobs"
)

// ListLibrary handles GET /v1/library: the active methods available to
// searches.
func ListLibrary(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		methods := m.Library().Methods()
		out := make([]datatypes.LibraryMethod, 0, len(methods))
		for _, method := range methods {
			out = append(out, datatypes.LibraryMethod{
				Name:     splice.DisplayName(method.Name()),
				Abbrev:   method.Abbrev(),
				Notation: method.PN().String(),
				Leadhead: method.Leadhead().String(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"methods": out})
	}
}

// AddMethod handles POST /v1/library: validates and installs a method
// in the active library.
func AddMethod(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AddMethodRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidateMethodName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		abbrev, err := validation.SanitizeAbbrev(req.Abbrev)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidateNotation(req.Notation); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		method, err := m.Library().Add(req.Name, abbrev, req.Notation)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, datatypes.LibraryMethod{
			Name:     method.Name(),
			Abbrev:   method.Abbrev(),
			Notation: method.PN().String(),
			Leadhead: method.Leadhead().String(),
		})
	}
}

// UploadLibraryZip handles POST /v1/library/zip: a zipped method list
// whose parsed index becomes browsable via GET /v1/library/index.
func UploadLibraryZip(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, _, err := c.Request.FormFile("library")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing library file upload"})
			return
		}
		defer file.Close()
		entries, err := splice.ReadZippedLibrary(file)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		m.SetIndex(entries)
		c.JSON(http.StatusOK, gin.H{"methods": len(entries)})
	}
}

// LibraryIndex handles GET /v1/library/index: the methods of the most
// recently loaded library file.
func LibraryIndex(m *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := m.Index()
		out := make([]datatypes.IndexEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, datatypes.IndexEntry{
				Name:     splice.DisplayName(e.Name),
				Code:     e.Code,
				Notation: e.Notation,
			})
		}
		c.JSON(http.StatusOK, gin.H{"methods": out})
	}
}
