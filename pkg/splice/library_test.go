// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipLibrary(t *testing.T, contents string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("library.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

func TestReadZippedLibrary(t *testing.T) {
	lib := "** Surprise Major library\n" +
		"<XMP>Cambridge b &x38x14x1258x36x14x58x16x78\n" +
		"Yorkshire b &x38x14x58x16x12x38x14x78\n" +
		"** a comment mid-file\n" +
		"Zzz z end\n" +
		"Ghost b &x38x14\n"

	entries, err := ReadZippedLibrary(zipLibrary(t, lib))
	require.NoError(t, err)
	require.Len(t, entries, 2, "Zzz terminates the list")

	assert.Equal(t, "Cambridge", entries[0].Name)
	assert.Equal(t, "b", entries[0].Code)
	assert.Equal(t, "b &x38x14x1258x36x14x58x16x78", entries[0].Notation)
	assert.Equal(t, "Yorkshire", entries[1].Name)

	t.Run("entry notation parses with implied leadhead", func(t *testing.T) {
		m, err := NewMethod(entries[0].Name, "", entries[0].Notation)
		require.NoError(t, err)
		assert.Equal(t, 32, m.LeadLength())
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := ReadZippedLibrary(strings.NewReader("plain text"))
		assert.Error(t, err)
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Cambridge", DisplayName("Cambridge"))
	assert.Equal(t, "Double Norwich Court", DisplayName("Double Norwich Court"))
	assert.Equal(t, "Newcastle under Lym...", DisplayName("Newcastle under Lyme Surprise"))
	assert.Len(t, DisplayName("Newcastle under Lyme Surprise"), MaxDisplayName+2)
}

func TestNewLibrary(t *testing.T) {
	lib := NewLibrary()
	assert.Equal(t, 13, lib.Size())

	t.Run("sorted by abbreviation", func(t *testing.T) {
		methods := lib.Methods()
		for i := 1; i < len(methods); i++ {
			assert.Less(t, methods[i-1].Abbrev(), methods[i].Abbrev())
		}
	})

	t.Run("find by name or abbreviation", func(t *testing.T) {
		assert.Equal(t, "Cambridge", lib.Find("C").Name())
		assert.Equal(t, "Lincolnshire", lib.Find("N").Name())
		assert.Equal(t, "Bristol", lib.Find("bristol").Name())
		assert.Nil(t, lib.Find("Q"))
	})
}

func TestLibraryAdd(t *testing.T) {
	t.Run("accepts a valid method", func(t *testing.T) {
		lib := NewLibrary()
		m, err := lib.Add("Lessness", "E", "x38x14x56x16x12x58x14x58 l12")
		require.NoError(t, err)
		assert.Equal(t, "E", m.Abbrev())
		assert.Equal(t, 14, lib.Size())
	})

	t.Run("rejects a duplicate abbreviation", func(t *testing.T) {
		lib := NewLibrary()
		_, err := lib.Add("Clone", "C", "x38x14x58x16x12x38x14x78 l12")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already used")
		assert.Contains(t, err.Error(), "Available abbreviations")
	})

	t.Run("rejects methods above Major", func(t *testing.T) {
		lib := NewLibrary()
		_, err := lib.Add("Cambridge Royal", "R", "x30x14x1250x36x1470x58x16x70x18 l12")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Major")
	})

	t.Run("rejects asymmetric notation", func(t *testing.T) {
		lib := NewLibrary()
		_, err := lib.Add("Crooked", "K", "+x38x14x58x16")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "symmetric")
	})

	t.Run("replaces a method of the same name", func(t *testing.T) {
		lib := NewLibrary()
		_, err := lib.Add("Cambridge", "C", "x38x14x58x16x12x38x14x78 l12")
		require.NoError(t, err)
		assert.Equal(t, 13, lib.Size())
	})

	t.Run("requires a one-letter abbreviation", func(t *testing.T) {
		lib := NewLibrary()
		_, err := lib.Add("Verbose", "Vb", "x38x14x58x16x12x38x14x78 l12")
		assert.Error(t, err)
	})
}
