// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package ingest reads a FASTA file into a symbolic-sequence Record
// Store. FASTA parsing is delegated to biogo rather than the
// teacher's hand-rolled bufio line scanner (cmd/muscato_prep_targets),
// the way kortschak/ins's cmd/ins/fragment.go does it. Duplicate
// sequence IDs are flagged with a Bloom filter the same way the
// teacher's muscato_screen.go flags previously-seen reads, repurposed
// here from read dedup to ID dedup.
package ingest

import (
	"fmt"
	"io"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/willf/bloom"

	"github.com/kshedden/idealwindow/internal/record"
	"github.com/kshedden/idealwindow/internal/store"
)

// bloomExpectedN and bloomFalsePositiveRate size the duplicate-ID
// screen. A Bloom hit is reported as a duplicate without an exact
// check, so a false positive reports an ID that is in fact unique.
const (
	bloomExpectedN         = 1_000_000
	bloomFalsePositiveRate = 0.001
)

// FASTA reads every sequence record from src into dst, returning the
// number of records written. A sequence ID repeated in the input is
// reported via dupIDs rather than failing the whole ingestion, since
// spec.md's InvalidInput kind covers "malformed record" but a caller
// may legitimately want to continue past it; run in cmd/idealwindow
// turns a non-empty dupIDs into a hard failure to match spec.md
// section 7.
func FASTA(src io.Reader, dst *store.Store[record.SymbolicSeq]) (n int, dupIDs []string, err error) {
	filter := bloom.NewWithEstimates(bloomExpectedN, bloomFalsePositiveRate)

	sc := seqio.NewScanner(fasta.NewReader(src, linear.NewSeq("", nil, alphabet.DNA)))
	for sc.Next() {
		seq, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return n, dupIDs, fmt.Errorf("ingest: unexpected sequence type from FASTA reader")
		}
		id := seq.ID
		body := seq.Seq.String()

		key := []byte(id)
		if filter.Test(key) {
			// A Bloom filter hit is a duplicate ID with the filter's
			// configured false-positive rate; flagged, not fatal.
			dupIDs = append(dupIDs, id)
		}
		filter.Add(key)

		if err := dst.Append(record.SymbolicSeq{ID: id, Seq: body}); err != nil {
			return n, dupIDs, err
		}
		n++
	}
	if err := sc.Error(); err != nil {
		return n, dupIDs, fmt.Errorf("ingest: %w", err)
	}
	return n, dupIDs, nil
}
