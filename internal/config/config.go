// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package config holds the run-wide configuration for idealwindow,
// generalizing the teacher's utils.Config to the window-scoring domain.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Method is a window scoring method.
type Method string

const (
	Sum  Method = "sum"
	Mean Method = "mean"
)

// DictMode selects a symbol->numeric dictionary preset.
type DictMode string

const (
	DictGC     DictMode = "GC"
	DictAT     DictMode = "AT"
	DictCustom DictMode = "custom"
)

// Config is the full set of parameters controlling one run of the
// engine.  It is decoded from JSON (matching the teacher's
// utils.Config/ReadConfig) and may also be populated directly by CLI
// flags.
type Config struct {

	// Path to the symbolic (FASTA) input file.
	InputFileName string

	// Path for the selected-window results.  A ".csv" suffix selects
	// CSV output, ".db" selects a SQLite result database, anything
	// else is line-delimited JSON.
	OutputFileName string

	// Window width.
	Window int

	// Number of top results to retain.
	Top int

	// Ideal target score.
	IdealValue float64

	// Scoring method, "sum" or "mean".
	Method Method

	// Dictionary preset, "GC" or "AT".  Ignored if Dict is non-empty.
	DictMode DictMode

	// Explicit symbol->value dictionary.  Takes precedence over
	// DictMode when non-empty.
	Dict map[string]float64

	// Value assigned to symbols absent from the dictionary.
	Beyond float64

	// Enable overlap pruning of consecutive-window runs.
	PruneOverlap bool

	// Persist the numeric record cache alongside the input file.
	Cache bool

	// Emit 1-based start/end indices.
	HumanReadable bool

	// Records per external-sort in-memory chunk.
	SortChunkSize int

	// Rounding precision (decimal digits) applied to score/score_diff.
	Precision int

	// Include the raw subsequence text in the output records.
	IncludeSeq bool

	// Workspace for temporary files; a unique run subdirectory is
	// created underneath it.  If blank, "idealwindow_tmp" is used.
	TempDir string

	// Directory for log files.  If blank, "idealwindow_logs" is used.
	LogDir string

	// Directory for the optional whole-sequence window-value cache.
	// If blank, caching is disabled.
	CacheDir string

	// If true, temporary files are left behind instead of removed.
	NoCleanTemp bool
}

// ReadConfig decodes a JSON configuration file, matching
// utils.ReadConfig in the teacher.
func ReadConfig(filename string) (*Config, error) {
	fid, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", filename, err)
	}
	defer fid.Close()

	dec := json.NewDecoder(fid)
	cfg := new(Config)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", filename, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in zero-valued fields with the CLI defaults from
// spec.md section 6.
func (c *Config) applyDefaults() {
	if c.Top == 0 {
		c.Top = 10
	}
	if c.Method == "" {
		c.Method = Mean
	}
	if c.SortChunkSize == 0 {
		c.SortChunkSize = 10_000_000
	}
	if c.Precision == 0 {
		c.Precision = 4
	}
	if c.TempDir == "" {
		c.TempDir = "idealwindow_tmp"
	}
	if c.LogDir == "" {
		c.LogDir = "idealwindow_logs"
	}
}

// Validate checks the invariants spec.md section 7 classifies as
// InvalidInput.
func (c *Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidInput, c.Window)
	}
	if c.Top <= 0 {
		return fmt.Errorf("%w: top must be positive, got %d", ErrInvalidInput, c.Top)
	}
	if c.Method != Sum && c.Method != Mean {
		return fmt.Errorf("%w: method must be sum or mean, got %q", ErrInvalidInput, c.Method)
	}
	return nil
}

// ErrInvalidInput tags the InvalidInput error kind of spec.md section 7.
var ErrInvalidInput = fmt.Errorf("invalid input")

// ResolveDict returns the effective symbol->value dictionary for this
// configuration, applying the GC/AT presets from spec.md section 6.
func (c *Config) ResolveDict() map[string]float64 {
	if len(c.Dict) > 0 {
		return c.Dict
	}
	switch c.DictMode {
	case DictAT:
		return map[string]float64{"A": 1, "T": 1, "a": 1, "t": 1}
	default:
		return map[string]float64{"G": 1, "C": 1, "g": 1, "c": 1}
	}
}
