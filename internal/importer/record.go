package importer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"lcaparam/internal/store"
	"lcaparam/internal/table"
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidNumber = errors.New("invalid number")
)

// BuildRecord turns a table row into the parameter record for group. Optional
// fields are set only when their cell is non-null; the code is left for
// ResolveCode.
func BuildRecord(row table.Row, group string) (store.ParameterRecord, error) {
	record := store.ParameterRecord{Group: group}

	database, ok := row.Get(table.ColDatabase)
	if !ok {
		return record, fmt.Errorf("row %d: %s: %w", row.Line, table.ColDatabase, ErrMissingField)
	}
	record.Database = database

	name, ok := row.Get(table.ColName)
	if !ok {
		return record, fmt.Errorf("row %d: %s: %w", row.Line, table.ColName, ErrMissingField)
	}
	record.Name = name

	amount, ok := row.Get(table.ColAmount)
	if !ok {
		return record, fmt.Errorf("row %d: %s: %w", row.Line, table.ColAmount, ErrMissingField)
	}
	value, err := parseFloat(amount)
	if err != nil {
		return record, fmt.Errorf("row %d: parsing %s: %w", row.Line, table.ColAmount, err)
	}
	record.Amount = value

	if formula, ok := row.Get(table.ColFormula); ok {
		record.Formula = &formula
	}

	if raw, ok := row.Get(table.ColUncertaintyType); ok {
		value, err := parseFloat(raw)
		if err != nil {
			return record, fmt.Errorf("row %d: parsing %s: %w", row.Line, table.ColUncertaintyType, err)
		}
		// Numeric cells arrive as floats ("2.0"); the code is truncated.
		if value < math.MinInt64 || value >= math.MaxInt64 {
			return record, fmt.Errorf("row %d: parsing %s: %w: %s out of range", row.Line, table.ColUncertaintyType, ErrInvalidNumber, raw)
		}
		code := int(value)
		record.UncertaintyType = &code
	}

	fields := []struct {
		column string
		dst    **float64
	}{
		{table.ColLoc, &record.Loc},
		{table.ColScale, &record.Scale},
		{table.ColMinimum, &record.Minimum},
		{table.ColMaximum, &record.Maximum},
	}
	for _, f := range fields {
		raw, ok := row.Get(f.column)
		if !ok {
			continue
		}
		value, err := parseFloat(raw)
		if err != nil {
			return record, fmt.Errorf("row %d: parsing %s: %w", row.Line, f.column, err)
		}
		*f.dst = &value
	}

	return record, nil
}

// parseFloat accepts finite values only; the uncertainty data is stored as
// JSON, which has no encoding for Inf.
func parseFloat(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidNumber, err)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrInvalidNumber, raw)
	}
	return value, nil
}
