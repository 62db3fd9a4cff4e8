// Copyright 2017, Kerby Shedden and the Muscato contributors.

package store

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// minFreeBytes is the floor below which store operations refuse to
// spill another run, surfaced as an IO error per spec.md section 7.
const minFreeBytes = 64 * 1024 * 1024

// checkFreeSpace is the disk-space preflight check spec.md section 9
// asks for before an external-sort spill or a new temp store: a run
// that would otherwise fail deep inside a merge with a confusing
// "no space left on device" instead surfaces a clear IO error up
// front, the same spirit as checkArgs in cmd/muscato/muscato.go
// validating inputs before the pipeline starts.
func checkFreeSpace(dir string) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("store: statfs %s: %w", dir, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return fmt.Errorf("store: only %d bytes free in %s, need at least %d: %w",
			free, dir, minFreeBytes, ErrIO)
	}
	return nil
}

// ErrIO tags the IO error kind of spec.md section 7.
var ErrIO = fmt.Errorf("io error")
