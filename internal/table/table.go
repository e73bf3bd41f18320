// Package table reads parameter tables: one header row naming the columns,
// then one parameter per row.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Column names are literal: case- and space-sensitive.
const (
	ColGroup           = "group"
	ColDatabase        = "database"
	ColName            = "name"
	ColAmount          = "amount"
	ColUncertaintyType = "uncertainty type"
	ColLoc             = "loc"
	ColScale           = "scale"
	ColMinimum         = "minimum"
	ColMaximum         = "maximum"
	ColFormula         = "formula"
)

var RequiredColumns = []string{ColGroup, ColDatabase, ColName, ColAmount}

var ErrMissingColumn = errors.New("missing required column")

type Options struct {
	Delimiter rune
}

type Table struct {
	Columns []string
	Rows    []Row
}

// Row holds one record's cells. Line is the 1-based line of the record in
// the source, the header being line 1.
type Row struct {
	Line  int
	cells map[string]string
}

func NewRow(line int, cells map[string]string) Row {
	return Row{Line: line, cells: cells}
}

// Get returns the cell of column, and false when the cell is null or the
// column is absent.
func (r Row) Get(column string) (string, bool) {
	value, ok := r.cells[column]
	if !ok || IsNull(value) {
		return "", false
	}
	return value, true
}

func Read(r io.Reader, opts Options) (*Table, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading header: table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	present := make(map[string]struct{}, len(header))
	for _, col := range header {
		present[col] = struct{}{}
	}
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	tbl := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading rows: %w", err)
		}
		line, _ := reader.FieldPos(0)
		cells := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				cells[col] = record[i]
			}
		}
		tbl.Rows = append(tbl.Rows, NewRow(line, cells))
	}

	return tbl, nil
}

// Groups returns the distinct non-null groups in order of first appearance.
func (t *Table) Groups() []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, row := range t.Rows {
		group, ok := row.Get(ColGroup)
		if !ok {
			continue
		}
		if _, dup := seen[group]; dup {
			continue
		}
		seen[group] = struct{}{}
		groups = append(groups, group)
	}
	return groups
}

// RowsForGroup returns the group's rows in source order.
func (t *Table) RowsForGroup(group string) []Row {
	var rows []Row
	for _, row := range t.Rows {
		if g, ok := row.Get(ColGroup); ok && g == group {
			rows = append(rows, row)
		}
	}
	return rows
}
