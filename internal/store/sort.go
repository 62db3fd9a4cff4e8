// Copyright 2017, Kerby Shedden and the Muscato contributors.

package store

import (
	"container/heap"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// CompareFunc orders two records of type T: negative if a sorts
// before b, zero if equal, positive if a sorts after b.
type CompareFunc[T any] func(a, b T) int

// SortBy performs a stable external sort of the store's records using
// cmp, reading at most chunkSize records into memory at a time. It is
// the Go counterpart of JsonlIO.sort_by_fileds in
// original_source/src/find_ideal_segments/io/jsonl.py: split the input
// into sorted runs small enough to fit in memory, spill each to its
// own temp file, then merge the runs with a min-heap so total memory
// stays O(chunkSize) regardless of how many records the store holds.
func (s *Store[T]) SortBy(cmp CompareFunc[T], chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	runDir := filepath.Dir(s.path)
	if err := checkFreeSpace(runDir); err != nil {
		return err
	}

	it, err := s.Iter()
	if err != nil {
		return err
	}
	defer it.Close()

	var runPaths []string
	cleanup := func() {
		for _, p := range runPaths {
			os.Remove(p)
		}
	}

	buf := make([]T, 0, chunkSize)
	flushChunk := func() error {
		if len(buf) == 0 {
			return nil
		}
		// sort.SliceStable preserves relative order of records that
		// the in-memory chunk read in from the original file, which
		// is what makes the final merge globally stable (see below).
		sort.SliceStable(buf, func(i, j int) bool {
			return cmp(buf[i], buf[j]) < 0
		})
		runPath := fmt.Sprintf("%s.run%d", s.path, len(runPaths))
		if err := writeRecords[T](runPath, func(yield func(T) error) error {
			for _, rec := range buf {
				if err := yield(rec); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			cleanup()
			return err
		}
		runPaths = append(runPaths, runPath)
		buf = buf[:0]
		return nil
	}

	for it.Next() {
		buf = append(buf, it.Record())
		if len(buf) >= chunkSize {
			if err := flushChunk(); err != nil {
				return err
			}
		}
	}
	if it.Err() != nil {
		cleanup()
		return it.Err()
	}
	if err := flushChunk(); err != nil {
		return err
	}
	it.Close()

	if len(runPaths) == 0 {
		return nil
	}
	if len(runPaths) == 1 {
		if err := s.flush(); err != nil {
			cleanup()
			return err
		}
		if err := os.Rename(runPaths[0], s.path); err != nil {
			cleanup()
			return fmt.Errorf("store: sort: %w", err)
		}
		return nil
	}

	if err := mergeRuns[T](runPaths, s.path, cmp); err != nil {
		cleanup()
		return err
	}
	cleanup()
	return nil
}

// mergeRun tracks one run's current head record in the merge heap.
type mergeRun[T any] struct {
	it     *Iterator[T]
	index  int // original run index, used as the stable tie-break
	cur    T
	exists bool
}

type mergeHeap[T any] struct {
	runs []*mergeRun[T]
	cmp  CompareFunc[T]
}

func (h *mergeHeap[T]) Len() int { return len(h.runs) }
func (h *mergeHeap[T]) Less(i, j int) bool {
	c := h.cmp(h.runs[i].cur, h.runs[j].cur)
	if c != 0 {
		return c < 0
	}
	// Equal keys: the run that appears earlier in the original file
	// contributed earlier records, so it must win ties to keep the
	// merge globally stable.
	return h.runs[i].index < h.runs[j].index
}
func (h *mergeHeap[T]) Swap(i, j int) { h.runs[i], h.runs[j] = h.runs[j], h.runs[i] }
func (h *mergeHeap[T]) Push(x any)    { h.runs = append(h.runs, x.(*mergeRun[T])) }
func (h *mergeHeap[T]) Pop() any {
	old := h.runs
	n := len(old)
	item := old[n-1]
	h.runs = old[:n-1]
	return item
}

// mergeRuns k-way merges the sorted run files into outPath. Only one
// record per run is held in memory at a time, bounding merge memory
// by the number of runs rather than their total size.
func mergeRuns[T any](runPaths []string, outPath string, cmp CompareFunc[T]) error {
	h := &mergeHeap[T]{cmp: cmp}
	var iters []*Iterator[T]
	closeAll := func() {
		for _, it := range iters {
			it.Close()
		}
	}

	for idx, p := range runPaths {
		rs, err := New[T](p)
		if err != nil {
			closeAll()
			return err
		}
		it, err := rs.Iter()
		if err != nil {
			closeAll()
			return err
		}
		iters = append(iters, it)
		mr := &mergeRun[T]{it: it, index: idx}
		if it.Next() {
			mr.cur = it.Record()
			mr.exists = true
			heap.Push(h, mr)
		} else if it.Err() != nil {
			closeAll()
			return it.Err()
		}
	}

	err := writeRecords[T](outPath, func(yield func(T) error) error {
		for h.Len() > 0 {
			top := heap.Pop(h).(*mergeRun[T])
			if err := yield(top.cur); err != nil {
				return err
			}
			if top.it.Next() {
				top.cur = top.it.Record()
				heap.Push(h, top)
			} else if top.it.Err() != nil {
				return top.it.Err()
			}
		}
		return nil
	})
	closeAll()
	return err
}
