package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"lcaparam/internal/store"
)

func (c *Client) NewActivityParameters(ctx context.Context, records []store.ParameterRecord, group string, overwrite bool) error {
	database, err := store.CheckParameterBatch(records, group)
	if err != nil {
		return err
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	exists, err := databaseExists(ctx, tx, database)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", store.ErrUnknownDatabase, database)
	}

	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}

	if overwrite {
		if _, err := tx.Exec(ctx, `DELETE FROM activity_parameters WHERE group_name = $1`, group); err != nil {
			return fmt.Errorf("deleting parameters of group %s: %w", group, err)
		}
	} else {
		rows, err := tx.Query(ctx, `SELECT name FROM activity_parameters WHERE group_name = $1 AND name = ANY($2) ORDER BY id`, group, names)
		if err != nil {
			return fmt.Errorf("listing names of group %s: %w", group, err)
		}
		clashes, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("scanning parameter names: %w", err)
		}
		if len(clashes) > 0 {
			return fmt.Errorf("%w: group %s: %s", store.ErrDuplicateParameter, group, strings.Join(clashes, ", "))
		}
	}

	if err := expireGroup(ctx, tx, group); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		data, err := json.Marshal(r.Uncertainty())
		if err != nil {
			return fmt.Errorf("marshaling uncertainty of %s: %w", r.Name, err)
		}
		batch.Queue(`
INSERT INTO activity_parameters (group_name, database_name, code, name, formula, amount, data)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, group, r.Database, r.Code, r.Name, r.Formula, r.Amount, data)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting parameters of group %s: %w", group, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing parameters of group %s: %w", group, err)
	}
	return nil
}

func (c *Client) AddExchangesToGroup(ctx context.Context, group string, activity store.ActivityKey) (int, error) {
	if strings.TrimSpace(group) == "" {
		return 0, fmt.Errorf("group name is required")
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := activityID(ctx, tx, activity)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
UPDATE exchanges SET original_amount = amount
WHERE activity_id = $1 AND formula IS NOT NULL AND original_amount IS NULL
`, id); err != nil {
		return 0, fmt.Errorf("saving original amounts of %s: %w", activity, err)
	}

	if err := expireGroup(ctx, tx, group); err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
INSERT INTO parameterized_exchanges (group_name, exchange_id, formula)
SELECT $1, id, formula FROM exchanges
WHERE activity_id = $2 AND formula IS NOT NULL
ORDER BY id
ON CONFLICT (exchange_id) DO UPDATE SET
    group_name = EXCLUDED.group_name,
    formula = EXCLUDED.formula
`, group, id)
	if err != nil {
		return 0, fmt.Errorf("linking exchanges of %s to group %s: %w", activity, group, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing exchange links of %s: %w", activity, err)
	}
	return int(tag.RowsAffected()), nil
}

func (c *Client) ListGroups(ctx context.Context) ([]store.Group, error) {
	rows, err := c.pool.Query(ctx, `SELECT name, COALESCE(fresh, FALSE), updated FROM parameter_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	groups := []store.Group{}
	for rows.Next() {
		var g store.Group
		if err := rows.Scan(&g.Name, &g.Fresh, &g.Updated); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}
	return groups, nil
}

func (c *Client) ListActivityParameters(ctx context.Context, group string) ([]store.ActivityParameter, error) {
	rows, err := c.pool.Query(ctx, `
SELECT id, group_name, database_name, code, name, formula, amount, data
FROM activity_parameters
WHERE ($1 = '' OR group_name = $1)
ORDER BY group_name, id
`, group)
	if err != nil {
		return nil, fmt.Errorf("listing activity parameters: %w", err)
	}
	defer rows.Close()

	params := []store.ActivityParameter{}
	for rows.Next() {
		var p store.ActivityParameter
		var data []byte
		err := rows.Scan(&p.ID, &p.Group, &p.Database, &p.Code, &p.Name, &p.Formula, &p.Amount, &data)
		if err != nil {
			return nil, fmt.Errorf("scanning activity parameter: %w", err)
		}
		if len(data) > 0 {
			var u store.UncertaintyData
			if err := json.Unmarshal(data, &u); err != nil {
				return nil, fmt.Errorf("unmarshaling uncertainty of %s: %w", p.Name, err)
			}
			p.SetUncertainty(u)
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity parameters: %w", err)
	}
	return params, nil
}

func (c *Client) ListParameterizedExchanges(ctx context.Context, group string) ([]store.ParameterizedExchange, error) {
	rows, err := c.pool.Query(ctx, `
SELECT p.group_name, p.exchange_id, p.formula, a.database_name, a.code
FROM parameterized_exchanges p
JOIN exchanges e ON e.id = p.exchange_id
JOIN activities a ON a.id = e.activity_id
WHERE ($1 = '' OR p.group_name = $1)
ORDER BY p.group_name, p.exchange_id
`, group)
	if err != nil {
		return nil, fmt.Errorf("listing parameterized exchanges: %w", err)
	}
	defer rows.Close()

	links := []store.ParameterizedExchange{}
	for rows.Next() {
		var l store.ParameterizedExchange
		if err := rows.Scan(&l.Group, &l.ExchangeID, &l.Formula, &l.Database, &l.Code); err != nil {
			return nil, fmt.Errorf("scanning parameterized exchange: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parameterized exchanges: %w", err)
	}
	return links, nil
}

func expireGroup(ctx context.Context, tx pgx.Tx, group string) error {
	_, err := tx.Exec(ctx, `
INSERT INTO parameter_groups (name, fresh, updated)
VALUES ($1, FALSE, now())
ON CONFLICT (name) DO UPDATE SET
    fresh = FALSE,
    updated = now()
`, group)
	if err != nil {
		return fmt.Errorf("expiring group %s: %w", group, err)
	}
	return nil
}
