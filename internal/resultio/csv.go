// Copyright 2017, Kerby Shedden and the Muscato contributors.

// CSV output is kept as its own writer, separate from the JSONL
// writer, so that it can also run as a standalone conversion step
// over an already-completed JSONL result file (cmd/idealwindow-convert),
// mirroring jsonl2csv.py in original_source/.
package resultio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/kshedden/idealwindow/internal/record"
)

var csvHeader = []string{
	"seq_id", "start_idx", "end_idx", "consecutive_window_length",
	"score", "score_diff", "seq",
}

type csvWriter struct {
	f   *os.File
	buf *bufio.Writer
	w   *csv.Writer
}

func newCSVWriter(path string) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("resultio: create %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("resultio: write header: %w", err)
	}
	return &csvWriter{f: f, buf: buf, w: w}, nil
}

func (w *csvWriter) Write(rec record.SelectedWindow) error {
	row := []string{
		rec.SeqID,
		strconv.Itoa(rec.StartIdx),
		strconv.Itoa(rec.EndIdx),
		strconv.Itoa(rec.ConsecutiveWindowLength),
		strconv.FormatFloat(rec.Score, 'g', -1, 64),
		strconv.FormatFloat(rec.ScoreDiff, 'g', -1, 64),
		rec.Seq,
	}
	return w.w.Write(row)
}

func (w *csvWriter) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}

// ConvertJSONLToCSV reads a line-delimited JSON result file at in and
// writes the equivalent CSV to out, the standalone conversion step
// spec.md's supplemental jsonl2csv feature calls for.
func ConvertJSONLToCSV(in, out string) error {
	r, err := newJSONLReader(in)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := newCSVWriter(out)
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
