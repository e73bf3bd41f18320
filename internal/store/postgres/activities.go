package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"lcaparam/internal/store"
)

func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("database name is required")
	}
	_, err := c.pool.Exec(ctx, `INSERT INTO databases (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("creating database %s: %w", name, err)
	}
	return nil
}

func (c *Client) DatabaseExists(ctx context.Context, name string) (bool, error) {
	return databaseExists(ctx, c.pool, name)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func databaseExists(ctx context.Context, q queryRower, name string) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM databases WHERE name = $1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking database %s: %w", name, err)
	}
	return exists, nil
}

func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, `SELECT name FROM databases ORDER BY name`)
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

func (c *Client) UpsertActivity(ctx context.Context, a store.ActivityInput) error {
	if strings.TrimSpace(a.Code) == "" {
		return fmt.Errorf("activity code is required")
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	exists, err := databaseExists(ctx, tx, a.Database)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", store.ErrUnknownDatabase, a.Database)
	}

	var activityID int64
	err = tx.QueryRow(ctx, `
INSERT INTO activities (database_name, code, name, location, unit)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (database_name, code) DO UPDATE SET
    name = EXCLUDED.name,
    location = EXCLUDED.location,
    unit = EXCLUDED.unit
RETURNING id
`, a.Database, a.Code, a.Name, a.Location, a.Unit).Scan(&activityID)
	if err != nil {
		return fmt.Errorf("upserting activity %s/%s: %w", a.Database, a.Code, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM exchanges WHERE activity_id = $1`, activityID); err != nil {
		return fmt.Errorf("clearing exchanges of %s/%s: %w", a.Database, a.Code, err)
	}

	batch := &pgx.Batch{}
	for _, e := range a.Exchanges {
		batch.Queue(`
INSERT INTO exchanges (activity_id, input_database, input_code, type, amount, formula, group_name)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, activityID, e.InputDatabase, e.InputCode, e.Type, e.Amount, e.Formula, e.Group)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting exchanges of %s/%s: %w", a.Database, a.Code, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing activity %s/%s: %w", a.Database, a.Code, err)
	}
	return nil
}

func (c *Client) ListActivities(ctx context.Context, database string) ([]store.Activity, error) {
	exists, err := c.DatabaseExists(ctx, database)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownDatabase, database)
	}

	return c.queryActivities(ctx, `WHERE a.database_name = $1`, database)
}

func (c *Client) GetActivity(ctx context.Context, database, code string) (*store.Activity, error) {
	activities, err := c.queryActivities(ctx, `WHERE a.database_name = $1 AND a.code = $2`, database, code)
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
SELECT a.id, a.database_name, a.code, COALESCE(a.name, ''), COALESCE(a.location, ''), COALESCE(a.unit, ''),
       e.id, e.input_database, e.input_code, e.type, e.amount, e.formula, e.group_name, e.original_amount
FROM activities a
LEFT JOIN exchanges e ON e.activity_id = a.id
` + where + `
ORDER BY a.id, e.id
`

	rows, err := c.pool.Query(ctx, query, args...)
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
			exchangeID     *int64
			inputDatabase  *string
			inputCode      *string
			exchangeType   *string
			amount         *float64
			formula        *string
			group          *string
			originalAmount *float64
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
		if exchangeID == nil {
			continue
		}
		current := &activities[len(activities)-1]
		current.Exchanges = append(current.Exchanges, store.Exchange{
			ID:             *exchangeID,
			InputDatabase:  deref(inputDatabase),
			InputCode:      deref(inputCode),
			Type:           deref(exchangeType),
			Amount:         derefFloat(amount),
			Formula:        formula,
			Group:          deref(group),
			OriginalAmount: originalAmount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activities: %w", err)
	}

	return activities, nil
}

func activityID(ctx context.Context, tx pgx.Tx, key store.ActivityKey) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM activities WHERE database_name = $1 AND code = $2`, key.Database, key.Code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: activity %s", store.ErrNotFound, key)
	}
	if err != nil {
		return 0, fmt.Errorf("looking up activity %s: %w", key, err)
	}
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
