// Copyright 2017, Kerby Shedden and the Muscato contributors.

// SQLite output is a third result format alongside JSONL/CSV,
// adopted from wtforacle's use of modernc.org/sqlite (pure-Go,
// cgo-free) via database/sql.
package resultio

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/kshedden/idealwindow/internal/record"
)

const createTableSQL = `
CREATE TABLE selected_windows (
	seq_id                    TEXT NOT NULL,
	start_idx                 INTEGER NOT NULL,
	end_idx                   INTEGER NOT NULL,
	consecutive_window_length INTEGER NOT NULL,
	score                     REAL NOT NULL,
	score_diff                REAL NOT NULL,
	seq                       TEXT
)`

const insertSQL = `
INSERT INTO selected_windows
	(seq_id, start_idx, end_idx, consecutive_window_length, score, score_diff, seq)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type sqliteWriter struct {
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
}

func newSQLiteWriter(path string) (Writer, error) {
	// A stale database from a previous run would collide with
	// CREATE TABLE; since this is a fresh result file per invocation,
	// start from a clean slate.
	os.Remove(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("resultio: open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("resultio: create table: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("resultio: begin tx: %w", err)
	}
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("resultio: prepare insert: %w", err)
	}
	return &sqliteWriter{db: db, tx: tx, stmt: stmt}, nil
}

func (w *sqliteWriter) Write(rec record.SelectedWindow) error {
	_, err := w.stmt.Exec(rec.SeqID, rec.StartIdx, rec.EndIdx, rec.ConsecutiveWindowLength, rec.Score, rec.ScoreDiff, rec.Seq)
	return err
}

func (w *sqliteWriter) Close() error {
	if err := w.stmt.Close(); err != nil {
		w.tx.Rollback()
		w.db.Close()
		return err
	}
	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return err
	}
	return w.db.Close()
}

// ConvertJSONLToSQLite reads a line-delimited JSON result file at in
// and writes the equivalent SQLite database to out, the SQLite
// counterpart of ConvertJSONLToCSV.
func ConvertJSONLToSQLite(in, out string) error {
	r, err := newJSONLReader(in)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := newSQLiteWriter(out)
	if err != nil {
		return err
	}
	for {
		rec, ok, err := r.Next()
		if err != nil {
			w.Close()
			return err
		}
		if !ok {
			break
		}
		if err := w.Write(rec); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
