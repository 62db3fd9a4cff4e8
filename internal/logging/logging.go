// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package logging opens the per-component log files used throughout
// idealwindow, generalizing the setupLog helpers repeated in every
// teacher binary (muscato_screen.setupLogger, muscato_confirm.setupLog,
// ...) into one shared helper.
package logging

import (
	"fmt"
	"log"
	"os"
	"path"

	"github.com/dustin/go-humanize"
)

// New creates a log file named <component>.log inside dir and returns
// a logger writing to it with the teacher's "" prefix / log.Ltime flag
// convention.
func New(dir, component string) (*log.Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logname := path.Join(dir, component+".log")
	fid, err := os.Create(logname)
	if err != nil {
		return nil, fmt.Errorf("logging: create %s: %w", logname, err)
	}
	return log.New(fid, "", log.Ltime), nil
}

// Count renders n with thousands separators for progress messages, the
// same role humanize.Comma plays in wtforacle's reporting output.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Size renders n bytes in human units for progress/cache messages.
func Size(n int64) string {
	return humanize.Bytes(uint64(n))
}
