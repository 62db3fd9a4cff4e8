// Copyright 2017, Kerby Shedden and the Muscato contributors.

package store

import (
	"os"
	"path/filepath"
	"testing"
)

type testRec struct {
	Key int
	Seq int
}

func TestAppendIterPreservesOrder(t *testing.T) {
	s, err := New[testRec](filepath.Join(t.TempDir(), "a.jsonl.sz"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i := 0; i < 10; i++ {
		if err := s.Append(testRec{Key: i, Seq: i}); err != nil {
			t.Fatal(err)
		}
	}

	it, err := s.Iter()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	for i := 0; i < 10; i++ {
		if !it.Next() {
			t.Fatalf("expected record %d, iterator ended early", i)
		}
		if got := it.Record(); got.Key != i || got.Seq != i {
			t.Fatalf("record %d: got %+v", i, got)
		}
	}
	if it.Next() {
		t.Fatal("expected iterator to be exhausted after 10 records")
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}

	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("Len() = %d, want 10", n)
	}
}

func TestTruncateHead(t *testing.T) {
	s, err := New[testRec](filepath.Join(t.TempDir(), "a.jsonl.sz"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		if err := s.Append(testRec{Key: i, Seq: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.TruncateHead(2); err != nil {
		t.Fatal(err)
	}

	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("Len() = %d, want 2", n)
	}

	it, err := s.Iter()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()
	for i := 0; i < 2; i++ {
		if !it.Next() {
			t.Fatalf("expected record %d, iterator ended early", i)
		}
		if got := it.Record(); got.Key != i {
			t.Fatalf("record %d: got %+v, want Key=%d", i, got, i)
		}
	}
	if it.Next() {
		t.Fatal("expected exactly 2 records after TruncateHead(2)")
	}
}

func TestTruncateHeadZeroEmptiesStore(t *testing.T) {
	s, err := New[testRec](filepath.Join(t.TempDir(), "a.jsonl.sz"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Append(testRec{Key: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.TruncateHead(0); err != nil {
		t.Fatal(err)
	}
	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("Len() = %d, want 0", n)
	}
}

func TestClearRemovesRecordsAndAllowsReuse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jsonl.sz")
	s, err := New[testRec](path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Append(testRec{Key: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("Len() = %d after Clear(), want 0", n)
	}

	if err := s.Append(testRec{Key: 2}); err != nil {
		t.Fatal(err)
	}
	n, err = s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("Len() = %d after re-appending post-Clear, want 1", n)
	}
}

func TestCloseDeletesTempStoreButNotPersistentStore(t *testing.T) {
	dir := t.TempDir()

	tmp, err := NewTemp[testRec](dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := tmp.Append(testRec{Key: 1}); err != nil {
		t.Fatal(err)
	}
	tmpPath := tmp.Path()
	if _, err := os.Stat(tmpPath); err != nil {
		t.Fatalf("expected temp store file to exist before Close: %v", err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Fatalf("expected temp store file to be removed after Close, stat err = %v", err)
	}

	persistentPath := filepath.Join(dir, "persistent.jsonl.sz")
	p, err := New[testRec](persistentPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Append(testRec{Key: 1}); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(persistentPath); err != nil {
		t.Fatalf("expected persistent store file to survive Close: %v", err)
	}
}

// TestSortByMultiRunIsStable forces SortBy to spill more than one run
// (23 records against a chunk size of 5, so len(runPaths) > 1 in
// sort.go) and checks that records sharing a key retain their
// original append order through the k-way merge, per the P6 stability
// property: records with equal keys appear in original append order
// after an external sort.
func TestSortByMultiRunIsStable(t *testing.T) {
	s, err := New[testRec](filepath.Join(t.TempDir(), "a.jsonl.sz"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	keys := []int{3, 1, 2, 1, 3, 2, 1, 3, 2, 1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2}
	for seq, k := range keys {
		if err := s.Append(testRec{Key: k, Seq: seq}); err != nil {
			t.Fatal(err)
		}
	}
	if len(keys) != 23 {
		t.Fatalf("test fixture has %d keys, want 23", len(keys))
	}

	cmp := func(a, b testRec) int { return a.Key - b.Key }
	if err := s.SortBy(cmp, 5); err != nil {
		t.Fatal(err)
	}

	it, err := s.Iter()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	var got []testRec
	for it.Next() {
		got = append(got, it.Record())
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(keys) {
		t.Fatalf("got %d records after sort, want %d", len(got), len(keys))
	}

	for i := 1; i < len(got); i++ {
		if got[i-1].Key > got[i].Key {
			t.Fatalf("not sorted at index %d: %+v then %+v", i, got[i-1], got[i])
		}
	}

	lastSeqByKey := map[int]int{}
	for _, rec := range got {
		if prev, ok := lastSeqByKey[rec.Key]; ok && rec.Seq < prev {
			t.Fatalf("key %d: Seq %d came after Seq %d, original append order not preserved", rec.Key, rec.Seq, prev)
		}
		lastSeqByKey[rec.Key] = rec.Seq
	}
}

func TestIterOnNeverAppendedStoreIsEmpty(t *testing.T) {
	s, err := New[testRec](filepath.Join(t.TempDir(), "never-written.jsonl.sz"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	it, err := s.Iter()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()
	if it.Next() {
		t.Fatal("expected an empty iterator over a store that was never appended to")
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
}
