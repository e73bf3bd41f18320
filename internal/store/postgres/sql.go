package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lcaparam/internal/store"
)

// RunSQL executes a read query. Numeric parameter keys bind $1, $2, ...;
// other keys bind @name placeholders. The two styles cannot be mixed.
func (c *Client) RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	positional, named := store.SplitParams(params)

	var args []any
	switch {
	case len(named) > 0 && len(positional) > 0:
		return nil, fmt.Errorf("running sql: positional and named parameters cannot be mixed")
	case len(named) > 0:
		args = []any{pgx.NamedArgs(named)}
	default:
		args = positional
	}

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running sql: %w", err)
	}
	defer rows.Close()

	fieldDescriptions := rows.FieldDescriptions()
	results := make([]map[string]any, 0)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("getting row values: %w", err)
		}

		row := make(map[string]any, len(fieldDescriptions))
		for i, fd := range fieldDescriptions {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sql rows: %w", err)
	}

	return results, nil
}
