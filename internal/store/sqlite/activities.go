package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"lcaparam/internal/store"
)

func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("database name is required")
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO databases (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("creating database %s: %w", name, err)
	}
	return nil
}

func (c *Client) DatabaseExists(ctx context.Context, name string) (bool, error) {
	return databaseExists(ctx, c.db, name)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func databaseExists(ctx context.Context, q queryer, name string) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM databases WHERE name = ?`, name).Scan(&count); err != nil {
		return false, fmt.Errorf("checking database %s: %w", name, err)
	}
	return count > 0, nil
}

func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM databases ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating databases: %w", err)
	}
	return names, nil
}

// UpsertActivity creates or updates an activity and replaces its exchanges.
func (c *Client) UpsertActivity(ctx context.Context, a store.ActivityInput) error {
	if strings.TrimSpace(a.Code) == "" {
		return fmt.Errorf("activity code is required")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := databaseExists(ctx, tx, a.Database)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", store.ErrUnknownDatabase, a.Database)
	}

	var activityID int64
	err = tx.QueryRowContext(ctx, `
	INSERT INTO activities (database_name, code, name, location, unit)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (database_name, code) DO UPDATE SET
		name = excluded.name,
		location = excluded.location,
		unit = excluded.unit
	RETURNING id
	`, a.Database, a.Code, a.Name, a.Location, a.Unit).Scan(&activityID)
	if err != nil {
		return fmt.Errorf("upserting activity %s/%s: %w", a.Database, a.Code, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM exchanges WHERE activity_id = ?`, activityID); err != nil {
		return fmt.Errorf("clearing exchanges of %s/%s: %w", a.Database, a.Code, err)
	}

	for _, e := range a.Exchanges {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO exchanges (activity_id, input_database, input_code, type, amount, formula, group_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`, activityID, e.InputDatabase, e.InputCode, e.Type, e.Amount, nullString(e.Formula), e.Group)
		if err != nil {
			return fmt.Errorf("inserting exchange of %s/%s: %w", a.Database, a.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing activity %s/%s: %w", a.Database, a.Code, err)
	}
	return nil
}

// ListActivities returns the database's activities in insertion order, each
// with its exchanges in insertion order.
func (c *Client) ListActivities(ctx context.Context, database string) ([]store.Activity, error) {
	exists, err := c.DatabaseExists(ctx, database)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownDatabase, database)
	}

	return c.queryActivities(ctx, `WHERE a.database_name = ?`, database)
}

func (c *Client) GetActivity(ctx context.Context, database, code string) (*store.Activity, error) {
	activities, err := c.queryActivities(ctx, `WHERE a.database_name = ? AND a.code = ?`, database, code)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, fmt.Errorf("%w: activity %s/%s", store.ErrNotFound, database, code)
	}
	return &activities[0], nil
}

func (c *Client) queryActivities(ctx context.Context, where string, args ...any) ([]store.Activity, error) {
	query := `
	SELECT a.id, a.database_name, a.code, a.name, a.location, a.unit,
	       e.id, e.input_database, e.input_code, e.type, e.amount, e.formula, e.group_name, e.original_amount
	FROM activities a
	LEFT JOIN exchanges e ON e.activity_id = a.id
	` + where + `
	ORDER BY a.id, e.id
	`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	activities := []store.Activity{}
	var lastID int64 = -1
	for rows.Next() {
		var (
			activityID     int64
			a              store.Activity
			exchangeID     sql.NullInt64
			inputDatabase  sql.NullString
			inputCode      sql.NullString
			exchangeType   sql.NullString
			amount         sql.NullFloat64
			formula        sql.NullString
			group          sql.NullString
			originalAmount sql.NullFloat64
		)
		err := rows.Scan(
			&activityID, &a.Database, &a.Code, &a.Name, &a.Location, &a.Unit,
			&exchangeID, &inputDatabase, &inputCode, &exchangeType, &amount, &formula, &group, &originalAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		if activityID != lastID {
			a.Exchanges = []store.Exchange{}
			activities = append(activities, a)
			lastID = activityID
		}
		if !exchangeID.Valid {
			continue
		}
		current := &activities[len(activities)-1]
		current.Exchanges = append(current.Exchanges, store.Exchange{
			ID:             exchangeID.Int64,
			InputDatabase:  inputDatabase.String,
			InputCode:      inputCode.String,
			Type:           exchangeType.String,
			Amount:         amount.Float64,
			Formula:        stringPtr(formula),
			Group:          group.String,
			OriginalAmount: floatPtr(originalAmount),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activities: %w", err)
	}

	return activities, nil
}

func activityID(ctx context.Context, tx *sql.Tx, key store.ActivityKey) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM activities WHERE database_name = ? AND code = ?`, key.Database, key.Code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: activity %s", store.ErrNotFound, key)
	}
	if err != nil {
		return 0, fmt.Errorf("looking up activity %s: %w", key, err)
	}
	return id, nil
}
