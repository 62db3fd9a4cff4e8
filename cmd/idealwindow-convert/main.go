// Copyright 2017, Kerby Shedden and the Muscato contributors.
//
// idealwindow-convert turns a completed line-delimited JSON result
// file into CSV or SQLite, standalone from the main run. Adapted from
// the original's separate jsonl2csv.py conversion step, extended to
// also cover the SQLite output format.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kshedden/idealwindow/internal/resultio"
)

func main() {
	var in, out string
	flag.StringVar(&in, "i", "", "Path to a line-delimited JSON result file")
	flag.StringVar(&out, "o", "", "Output path; .csv for CSV, .db for SQLite")
	flag.Parse()

	if in == "" || out == "" {
		fmt.Fprintln(os.Stderr, "idealwindow-convert: -i and -o are both required")
		os.Exit(1)
	}

	var err error
	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv":
		err = resultio.ConvertJSONLToCSV(in, out)
	case ".db":
		err = resultio.ConvertJSONLToSQLite(in, out)
	default:
		fmt.Fprintf(os.Stderr, "idealwindow-convert: unsupported output suffix %q (want .csv or .db)\n", filepath.Ext(out))
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow-convert: %v\n", err)
		os.Exit(1)
	}
}
