// Copyright 2017, Kerby Shedden and the Muscato contributors.

package resultio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kshedden/idealwindow/internal/record"
)

type jsonlWriter struct {
	f *os.File
	w *bufio.Writer
}

func newJSONLWriter(path string) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("resultio: create %s: %w", path, err)
	}
	return &jsonlWriter{f: f, w: bufio.NewWriter(f)}, nil
}

func (w *jsonlWriter) Write(rec record.SelectedWindow) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("resultio: marshal: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *jsonlWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}

// jsonlReader reads back a plain JSONL result file, used by
// ConvertJSONLToCSV and ConvertJSONLToSQLite.
type jsonlReader struct {
	f       *os.File
	scanner *bufio.Scanner
}

func newJSONLReader(path string) (*jsonlReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("resultio: open %s: %w", path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &jsonlReader{f: f, scanner: scanner}, nil
}

// Next returns the next record, or ok=false at end of file.
func (r *jsonlReader) Next() (record.SelectedWindow, bool, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record.SelectedWindow
		if err := json.Unmarshal(line, &rec); err != nil {
			return record.SelectedWindow{}, false, fmt.Errorf("resultio: unmarshal: %w", err)
		}
		return rec, true, nil
	}
	if err := r.scanner.Err(); err != nil {
		return record.SelectedWindow{}, false, err
	}
	return record.SelectedWindow{}, false, nil
}

func (r *jsonlReader) Close() error {
	return r.f.Close()
}
