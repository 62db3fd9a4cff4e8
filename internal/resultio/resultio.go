// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package resultio writes Selected-Window result records to their
// final user-facing form: plain (uncompressed) line-delimited JSON,
// CSV, or a SQLite database, selected by the output path's suffix per
// spec.md section 6. Unlike internal/store's snappy-compressed
// intermediates, these are the files a user reads directly, the same
// distinction the teacher draws between its snappy "*.txt.sz"
// pipeline files and its plain "results.txt" (muscato/muscato.go).
package resultio

import (
	"path/filepath"
	"strings"

	"github.com/kshedden/idealwindow/internal/record"
)

// Writer accepts Selected-Window records one at a time, in the order
// the selector produced them, and finalizes them on Close.
type Writer interface {
	Write(rec record.SelectedWindow) error
	Close() error
}

// New opens a Writer for path, choosing CSV for a ".csv" suffix,
// SQLite for ".db", and line-delimited JSON otherwise.
func New(path string) (Writer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return newCSVWriter(path)
	case ".db":
		return newSQLiteWriter(path)
	default:
		return newJSONLWriter(path)
	}
}

// HumanReadable shifts a record's start_idx/end_idx from 0-based to
// 1-based inclusive, per the -r/--human-readable flag of spec.md
// section 6.
func HumanReadable(rec record.SelectedWindow) record.SelectedWindow {
	rec.StartIdx++
	rec.EndIdx++
	return rec
}
