// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package store implements the append-only, iterable, externally
// sortable record store of spec.md section 4.D.  Every backing file is
// a snappy-compressed, line-delimited JSON stream, generalizing the
// teacher's ubiquitous "*.txt.sz" files (see e.g.
// muscato_window_reads.go, muscato_uniqify/muscato_uniqify.go) from
// hand-rolled tab-separated records to a generic typed record.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/google/uuid"
)

// Store is a durable, ordered collection of records of type T, backed
// by a single snappy-compressed JSONL file.
type Store[T any] struct {
	path   string
	isTemp bool
	closed bool

	// buffered append handle, lazily opened
	appendFile *os.File
	appendW    *snappy.Writer
}

// New opens (creating if necessary) a persistent store at path.
func New[T any](path string) (*Store[T], error) {
	return &Store[T]{path: path}, nil
}

// NewTemp creates a temporary store inside dir, named with a random
// uuid the way the teacher names its pipes and temp directories
// (makeTemp in cmd/muscato/muscato.go).
func NewTemp[T any](dir string) (*Store[T], error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := checkFreeSpace(dir); err != nil {
		return nil, err
	}
	name := filepath.Join(dir, uuid.NewString()+".jsonl.sz")
	return &Store[T]{path: name, isTemp: true}, nil
}

// Path returns the backing file path.
func (s *Store[T]) Path() string { return s.path }

func (s *Store[T]) openAppend() error {
	if s.appendW != nil {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("store: open %s for append: %w", s.path, err)
	}
	s.appendFile = f
	s.appendW = snappy.NewBufferedWriter(f)
	return nil
}

// flush closes the append handle so the file is in a consistent state
// for readers.  Durability here is "flushed but not fsynced", matching
// the contract in spec.md section 4.D.
func (s *Store[T]) flush() error {
	if s.appendW == nil {
		return nil
	}
	err := s.appendW.Close()
	s.appendW = nil
	cerr := s.appendFile.Close()
	s.appendFile = nil
	if err != nil {
		return err
	}
	return cerr
}

// Append adds one record to the end of the store.
func (s *Store[T]) Append(rec T) error {
	if err := s.openAppend(); err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	b = append(b, '\n')
	if _, err := s.appendW.Write(b); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	return nil
}

// Iterator yields records in insertion order.  Mutating the store
// (Append, SortBy, TruncateHead, Clear) while an Iterator is live
// invalidates it, matching spec.md section 9's "iterator / generator
// control flow" design note.
type Iterator[T any] struct {
	f       *os.File
	scanner *bufio.Scanner
	cur     T
	err     error
}

// Iter reopens the backing file at position 0 and returns a fresh
// Iterator, the Go analogue of JsonlIO.__iter__ seeking to the start of
// the file on every call.
func (s *Store[T]) Iter() (*Iterator[T], error) {
	if err := s.flush(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// An empty, never-appended-to store behaves as an
			// empty iterator.
			return &Iterator[T]{}, nil
		}
		return nil, fmt.Errorf("store: open %s: %w", s.path, err)
	}
	rdr := snappy.NewReader(f)
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &Iterator[T]{f: f, scanner: scanner}, nil
}

// Next advances the iterator.  It returns false at end of stream or on
// error; call Err to distinguish the two.
func (it *Iterator[T]) Next() bool {
	if it.scanner == nil {
		return false
	}
	for it.scanner.Scan() {
		line := it.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			it.err = fmt.Errorf("store: unmarshal: %w", err)
			return false
		}
		it.cur = v
		return true
	}
	if err := it.scanner.Err(); err != nil {
		it.err = err
	}
	return false
}

// Record returns the record loaded by the most recent successful Next.
func (it *Iterator[T]) Record() T { return it.cur }

// Err returns the first error encountered during iteration, if any.
func (it *Iterator[T]) Err() error { return it.err }

// Close releases the file handle held by the iterator.
func (it *Iterator[T]) Close() error {
	if it.f == nil {
		return nil
	}
	err := it.f.Close()
	it.f = nil
	return err
}

// Len returns the number of records currently in the store.  It scans
// the whole file, matching the "MAY scan" contract of spec.md section
// 4.D.
func (s *Store[T]) Len() (int, error) {
	it, err := s.Iter()
	if err != nil {
		return 0, err
	}
	defer it.Close()
	n := 0
	for it.Next() {
		n++
	}
	if it.Err() != nil {
		return 0, it.Err()
	}
	return n, nil
}

// Clear removes all records from the store.
func (s *Store[T]) Clear() error {
	if err := s.flush(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: clear %s: %w", s.path, err)
	}
	return nil
}

// TruncateHead keeps only the first k records and drops the rest.
func (s *Store[T]) TruncateHead(k int) error {
	it, err := s.Iter()
	if err != nil {
		return err
	}
	defer it.Close()

	tmpPath := s.path + ".head.tmp"
	if err := writeRecords[T](tmpPath, func(yield func(T) error) error {
		n := 0
		for n < k && it.Next() {
			if err := yield(it.Record()); err != nil {
				return err
			}
			n++
		}
		return it.Err()
	}); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Close releases the store.  A store created via NewTemp deletes its
// backing file; a store opened via New does not, matching spec.md
// section 4.D.
func (s *Store[T]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.flush(); err != nil {
		return err
	}
	if s.isTemp {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("store: close %s: %w", s.path, err)
		}
	}
	return nil
}

// writeRecords streams records produced by gen into a fresh
// snappy-compressed JSONL file at path.
func writeRecords[T any](path string, gen func(yield func(T) error) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", path, err)
	}
	w := snappy.NewBufferedWriter(f)

	werr := gen(func(rec T) error {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		b = append(b, '\n')
		_, err = w.Write(b)
		return err
	})

	cerr := w.Close()
	ferr := f.Close()
	if werr != nil {
		return fmt.Errorf("store: write %s: %w", path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("store: flush %s: %w", path, cerr)
	}
	if ferr != nil {
		return fmt.Errorf("store: close %s: %w", path, ferr)
	}
	return nil
}

var _ io.Closer = (*Iterator[int])(nil)
