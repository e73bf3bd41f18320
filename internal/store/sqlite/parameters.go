package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lcaparam/internal/store"
)

// NewActivityParameters inserts the batch for group in one transaction. With
// overwrite the group's existing activity parameters are deleted first;
// without it, a name already present in the group fails the whole batch.
func (c *Client) NewActivityParameters(ctx context.Context, records []store.ParameterRecord, group string, overwrite bool) error {
	database, err := store.CheckParameterBatch(records, group)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := databaseExists(ctx, tx, database)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", store.ErrUnknownDatabase, database)
	}

	if overwrite {
		if _, err := tx.ExecContext(ctx, `DELETE FROM activity_parameters WHERE group_name = ?`, group); err != nil {
			return fmt.Errorf("deleting parameters of group %s: %w", group, err)
		}
	} else {
		existing, err := existingNames(ctx, tx, group)
		if err != nil {
			return err
		}
		var clashes []string
		for _, r := range records {
			if _, ok := existing[r.Name]; ok {
				clashes = append(clashes, r.Name)
			}
		}
		if len(clashes) > 0 {
			return fmt.Errorf("%w: group %s: %s", store.ErrDuplicateParameter, group, strings.Join(clashes, ", "))
		}
	}

	if err := expireGroup(ctx, tx, group); err != nil {
		return err
	}

	for _, r := range records {
		data, err := json.Marshal(r.Uncertainty())
		if err != nil {
			return fmt.Errorf("marshaling uncertainty of %s: %w", r.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO activity_parameters (group_name, database_name, code, name, formula, amount, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`, group, r.Database, nullString(r.Code), r.Name, nullString(r.Formula), r.Amount, string(data))
		if err != nil {
			return fmt.Errorf("inserting parameter %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing parameters of group %s: %w", group, err)
	}
	return nil
}

// AddExchangesToGroup links every formula-bearing exchange of the activity to
// group, recording each exchange's original amount the first time it is
// linked. It returns the number of exchanges linked.
func (c *Client) AddExchangesToGroup(ctx context.Context, group string, activity store.ActivityKey) (int, error) {
	if strings.TrimSpace(group) == "" {
		return 0, fmt.Errorf("group name is required")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := activityID(ctx, tx, activity)
	if err != nil {
		return 0, err
	}

	type parametrized struct {
		id       int64
		formula  string
		original bool
	}
	rows, err := tx.QueryContext(ctx, `
	SELECT id, formula, original_amount IS NOT NULL
	FROM exchanges
	WHERE activity_id = ? AND formula IS NOT NULL
	ORDER BY id
	`, id)
	if err != nil {
		return 0, fmt.Errorf("listing parametrized exchanges of %s: %w", activity, err)
	}
	var exchanges []parametrized
	for rows.Next() {
		var p parametrized
		if err := rows.Scan(&p.id, &p.formula, &p.original); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning exchange: %w", err)
		}
		exchanges = append(exchanges, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating exchanges: %w", err)
	}
	rows.Close()

	if err := expireGroup(ctx, tx, group); err != nil {
		return 0, err
	}

	for _, e := range exchanges {
		if !e.original {
			if _, err := tx.ExecContext(ctx, `UPDATE exchanges SET original_amount = amount WHERE id = ?`, e.id); err != nil {
				return 0, fmt.Errorf("saving original amount of exchange %d: %w", e.id, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO parameterized_exchanges (group_name, exchange_id, formula)
		VALUES (?, ?, ?)
		ON CONFLICT (exchange_id) DO UPDATE SET
			group_name = excluded.group_name,
			formula = excluded.formula
		`, group, e.id, e.formula)
		if err != nil {
			return 0, fmt.Errorf("linking exchange %d to group %s: %w", e.id, group, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing exchange links of %s: %w", activity, err)
	}
	return len(exchanges), nil
}

func (c *Client) ListGroups(ctx context.Context) ([]store.Group, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, fresh, updated FROM parameter_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	groups := []store.Group{}
	for rows.Next() {
		var g store.Group
		var updated string
		if err := rows.Scan(&g.Name, &g.Fresh, &updated); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		if ts, err := time.Parse(time.DateTime, updated); err == nil {
			g.Updated = ts
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}
	return groups, nil
}

// ListActivityParameters lists the parameters of group, or of every group
// when group is empty.
func (c *Client) ListActivityParameters(ctx context.Context, group string) ([]store.ActivityParameter, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT id, group_name, database_name, code, name, formula, amount, data
	FROM activity_parameters
	WHERE (? = '' OR group_name = ?)
	ORDER BY group_name, id
	`, group, group)
	if err != nil {
		return nil, fmt.Errorf("listing activity parameters: %w", err)
	}
	defer rows.Close()

	params := []store.ActivityParameter{}
	for rows.Next() {
		var p store.ActivityParameter
		var code, formula sql.NullString
		var data []byte
		err := rows.Scan(&p.ID, &p.Group, &p.Database, &code, &p.Name, &formula, &p.Amount, &data)
		if err != nil {
			return nil, fmt.Errorf("scanning activity parameter: %w", err)
		}
		p.Code = stringPtr(code)
		p.Formula = stringPtr(formula)
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
	rows, err := c.db.QueryContext(ctx, `
	SELECT p.group_name, p.exchange_id, p.formula, a.database_name, a.code
	FROM parameterized_exchanges p
	JOIN exchanges e ON e.id = p.exchange_id
	JOIN activities a ON a.id = e.activity_id
	WHERE (? = '' OR p.group_name = ?)
	ORDER BY p.group_name, p.exchange_id
	`, group, group)
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

func existingNames(ctx context.Context, tx *sql.Tx, group string) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM activity_parameters WHERE group_name = ?`, group)
	if err != nil {
		return nil, fmt.Errorf("listing names of group %s: %w", group, err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning parameter name: %w", err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parameter names: %w", err)
	}
	return names, nil
}

// expireGroup creates the group if needed and marks it as needing
// recalculation.
func expireGroup(ctx context.Context, tx *sql.Tx, group string) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO parameter_groups (name, fresh, updated)
	VALUES (?, 0, datetime('now'))
	ON CONFLICT (name) DO UPDATE SET
		fresh = 0,
		updated = datetime('now')
	`, group)
	if err != nil {
		return fmt.Errorf("expiring group %s: %w", group, err)
	}
	return nil
}
