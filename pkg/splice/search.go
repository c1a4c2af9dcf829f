// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SearchConfig enumerates everything a search needs beyond the method
// and music tables themselves.
type SearchConfig struct {
	// Methods to splice, by name or abbreviation; the order affects
	// enumeration and naming.
	Methods []string `json:"methods" yaml:"methods" validate:"min=1,dive,required"`
	// Extra music definitions on top of the defaults.
	Music []MusicConfig `json:"music,omitempty" yaml:"music,omitempty" validate:"dive"`
	// DefaultMusic includes the stock definitions; on by default.
	DefaultMusic *bool `json:"defaultMusic,omitempty" yaml:"defaultMusic,omitempty"`

	LeadsPerPart int `json:"leadsPerPart" yaml:"leadsPerPart" validate:"min=1"`
	Parts        int `json:"parts" yaml:"parts" validate:"min=1"`

	TenorsTogether bool `json:"tenorsTogether" yaml:"tenorsTogether"`
	NicePartEnds   bool `json:"nicePartEnds" yaml:"nicePartEnds"`
	// OptimumBalance enforces perfect half-lead method balance.
	OptimumBalance bool `json:"optimumBalance" yaml:"optimumBalance"`
	// MaxCOM starts the search at the maximum achievable changes of
	// method rather than the minimum that admits every method.
	MaxCOM      bool `json:"maxCOM" yaml:"maxCOM"`
	LeadheadOnly bool `json:"leadheadOnly" yaml:"leadheadOnly"`
	// Calls: 0 none, 1 bobs, 2 bobs and singles.
	Calls int `json:"calls" yaml:"calls" validate:"min=0,max=2"`

	MinScore   int `json:"minScore" yaml:"minScore" validate:"min=0"`
	MinCOM     int `json:"minCOM" yaml:"minCOM" validate:"min=0"`
	MinBalance int `json:"minBalance" yaml:"minBalance" validate:"min=0,max=100"`

	COMScoreWeight     *int `json:"comScoreWeight,omitempty" yaml:"comScoreWeight,omitempty"`
	BalanceScoreWeight *int `json:"balanceScoreWeight,omitempty" yaml:"balanceScoreWeight,omitempty"`

	MinPartLength int `json:"minPartLength,omitempty" yaml:"minPartLength,omitempty" validate:"min=0"`
	MaxPartLength int `json:"maxPartLength,omitempty" yaml:"maxPartLength,omitempty" validate:"min=0"`

	// StartComp seeds the search; must itself be rotationally sorted.
	StartComp string `json:"startComp,omitempty" yaml:"startComp,omitempty"`

	// CompsToKeep sizes the top-K output buffer.
	CompsToKeep int `json:"compsToKeep,omitempty" yaml:"compsToKeep,omitempty" validate:"min=0"`
}

// MusicConfig is the serialisable form of one music definition.
type MusicConfig struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Score    int    `json:"score" yaml:"score" validate:"min=1"`
	Patterns string `json:"patterns" yaml:"patterns" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural constraints of the configuration.
func (cfg *SearchConfig) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid search configuration: %w", err)
	}
	if cfg.MaxPartLength > 0 && cfg.MaxPartLength < cfg.MinPartLength {
		return fmt.Errorf("invalid search configuration: maxPartLength below minPartLength")
	}
	return nil
}

// NewSearch resolves a configuration against a library, installs the
// methods and music on the tables and constructs a ready composer.
// The node table must already be built; the method and music passes
// are left for the Runner.
func NewSearch(lib *Library, tables *Tables, cfg *SearchConfig) (*Composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	methods := make([]*Method, 0, len(cfg.Methods))
	for _, key := range cfg.Methods {
		m := lib.Find(key)
		if m == nil {
			return nil, fmt.Errorf("no method %q in the library", key)
		}
		methods = append(methods, m)
	}
	tables.SetMethods(methods)

	var music []Music
	if cfg.DefaultMusic == nil || *cfg.DefaultMusic {
		music = DefaultMusic()
	}
	for _, mc := range cfg.Music {
		music = append(music, NewMusic(mc.Name, mc.Score, mc.Patterns))
	}
	tables.SetMusic(music)

	c := NewComposer(tables, cfg.LeadsPerPart, cfg.Parts,
		cfg.TenorsTogether, cfg.NicePartEnds, cfg.OptimumBalance,
		cfg.LeadheadOnly, cfg.Calls)

	c.SetMinBalance(max(cfg.MinBalance, 1))
	c.SetMinScore(cfg.MinScore)
	if cfg.COMScoreWeight != nil {
		c.SetCOMScore(*cfg.COMScoreWeight)
	}
	if cfg.BalanceScoreWeight != nil {
		c.SetBalanceScore(*cfg.BalanceScoreWeight)
	}

	// Part length bounds default to the extremes reachable from the
	// chosen methods' lead lengths.
	shortest, longest := leadLengthRange(methods)
	minLen, maxLen := shortest*cfg.LeadsPerPart, longest*cfg.LeadsPerPart
	if cfg.MinPartLength > 0 {
		minLen = cfg.MinPartLength
	}
	if cfg.MaxPartLength > 0 {
		maxLen = cfg.MaxPartLength
	}
	c.SetMinPartLength(minLen)
	c.SetMaxPartLength(maxLen)

	c.SetMinCOM(initialMinCOM(cfg, len(methods)))

	switch {
	case cfg.StartComp != "":
		if err := c.SetStartComp(cfg.StartComp); err != nil {
			return nil, err
		}
	case !cfg.LeadheadOnly && len(methods) > 1:
		// Default seed so the search opens e.g. "CC YC" rather than
		// wasting time on the all-first-method prefix.
		seed := methods[0].abbrev + methods[0].abbrev + " " + methods[1].abbrev + methods[0].abbrev
		if err := c.SetStartComp(seed); err != nil {
			return nil, err
		}
	}
	if cfg.MinCOM > 0 {
		c.SetMinCOM(cfg.MinCOM)
	}
	return c, nil
}

// initialMinCOM picks the starting minimum changes-of-method. Without
// MaxCOM it is the smallest value that lets every method be rung in the
// part; with MaxCOM it is the largest achievable, except that 2-spliced
// leadhead searches over an odd number of leads cannot avoid a repeated
// lead and lose one.
func initialMinCOM(cfg *SearchConfig, nmethods int) int {
	maxCOM := cfg.MaxCOM
	if nmethods < 2 {
		maxCOM = false
	}
	if cfg.LeadheadOnly {
		if maxCOM {
			minCOM := cfg.LeadsPerPart
			if nmethods == 2 && cfg.LeadsPerPart&1 == 1 {
				minCOM--
			}
			return minCOM
		}
		return nmethods - 1
	}
	if maxCOM {
		return cfg.LeadsPerPart * 2
	}
	return min(nmethods, cfg.LeadsPerPart+2)
}

// leadLengthRange returns the shortest and longest lead lengths present.
func leadLengthRange(methods []*Method) (shortest, longest int) {
	shortest = 5000
	for _, m := range methods {
		if m.leadLength < shortest {
			shortest = m.leadLength
		}
		if m.leadLength > longest {
			longest = m.leadLength
		}
	}
	return shortest, longest
}

// Runner executes the remaining table passes and the search as a single
// tracked job: methods, music and lead-music get one progress point
// each and the search the other 98.
type Runner struct {
	Tables   *Tables
	Composer *Composer
	Tracker  *Tracker
}

// NewRunner wires a runner around a prepared composer.
func NewRunner(tables *Tables, composer *Composer) *Runner {
	return &Runner{
		Tables:   tables,
		Composer: composer,
		Tracker:  NewTracker(101, "Composing"),
	}
}

// Run performs the table passes then the search, reporting aggregate
// progress through the runner's tracker. Returns the first table error.
func (r *Runner) Run(host Host) error {
	if r.Tracker.Aborted() {
		return nil
	}
	r.Tracker.SetProgress(0)
	r.Tracker.StartDelegate(r.Tables.Tracker, 1)
	err := r.Tables.PrepareMethods()
	r.Tracker.EndDelegate()
	if err != nil {
		return err
	}

	if r.Tracker.Aborted() {
		return nil
	}
	r.Tracker.StartDelegate(r.Tables.Tracker, 1)
	r.Tables.PrepareMusic()
	r.Tracker.EndDelegate()

	if r.Tracker.Aborted() {
		return nil
	}
	r.Tracker.StartDelegate(r.Tables.Tracker, 1)
	r.Tables.PrepareLeadMusic()
	r.Tracker.EndDelegate()

	if r.Tracker.Aborted() {
		return nil
	}
	r.Tracker.StartDelegate(r.Composer.Tracker, 98)
	r.Composer.Compose(host)
	r.Tracker.EndDelegate()
	return nil
}

// Abort cooperatively stops whichever phase is running.
func (r *Runner) Abort() {
	r.Tracker.Abort()
	r.Tables.Abort()
	r.Composer.Abort()
}
