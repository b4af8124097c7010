// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package samples holds waveform points by row index and channel name.
package samples

import (
	"encoding/csv"
	"io"
	"runtime"
)

// useCRLF ends CSV lines the platform's way.
var useCRLF = runtime.GOOS == "windows"

// Table is a sparse table of sample values, one column per channel. Columns
// may differ in length; missing cells are empty.
type Table struct {
	names []string
	cols  [][]string
}

// AddColumn appends a channel column. Values are kept as the instrument sent
// them.
func (t *Table) AddColumn(name string, values []string) {
	t.names = append(t.names, name)
	t.cols = append(t.cols, values)
}

// Columns returns the channel names in insertion order.
func (t *Table) Columns() []string { return t.names }

// Rows returns the number of data rows, the length of the longest column.
func (t *Table) Rows() int {
	n := 0
	for _, c := range t.cols {
		if len(c) > n {
			n = len(c)
		}
	}
	return n
}

// Value returns the cell at row for channel name, and whether it is present.
func (t *Table) Value(row int, name string) (string, bool) {
	for i, n := range t.names {
		if n != name {
			continue
		}
		if row < 0 || row >= len(t.cols[i]) {
			return "", false
		}
		return t.cols[i][row], true
	}
	return "", false
}

// WriteCSV writes a header row of channel names followed by one row per
// sample index.
func (t *Table) WriteCSV(w io.Writer) error {
	if len(t.names) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = useCRLF
	if err := cw.Write(t.names); err != nil {
		return err
	}
	rows := t.Rows()
	rec := make([]string, len(t.cols))
	for r := 0; r < rows; r++ {
		for i, c := range t.cols {
			rec[i] = ""
			if r < len(c) {
				rec[i] = c[r]
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
