package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS databases (
		name    TEXT PRIMARY KEY,
		created TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS activities (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		database_name TEXT NOT NULL REFERENCES databases(name) ON DELETE CASCADE,
		code          TEXT NOT NULL,
		name          TEXT DEFAULT '',
		location      TEXT DEFAULT '',
		unit          TEXT DEFAULT '',
		CONSTRAINT uq_activity UNIQUE (database_name, code)
	);

	CREATE TABLE IF NOT EXISTS exchanges (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id     INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		input_database  TEXT DEFAULT '',
		input_code      TEXT DEFAULT '',
		type            TEXT DEFAULT '',
		amount          REAL NOT NULL DEFAULT 0,
		formula         TEXT,
		group_name      TEXT DEFAULT '',
		original_amount REAL
	);

	CREATE TABLE IF NOT EXISTS parameter_groups (
		name    TEXT PRIMARY KEY,
		fresh   INTEGER DEFAULT 0,
		updated TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS activity_parameters (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		group_name    TEXT NOT NULL REFERENCES parameter_groups(name) ON DELETE CASCADE,
		database_name TEXT NOT NULL,
		code          TEXT,
		name          TEXT NOT NULL,
		formula       TEXT,
		amount        REAL NOT NULL,
		data          TEXT DEFAULT '{}',
		CONSTRAINT uq_activity_parameter UNIQUE (group_name, name)
	);

	CREATE TABLE IF NOT EXISTS parameterized_exchanges (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		group_name  TEXT NOT NULL REFERENCES parameter_groups(name) ON DELETE CASCADE,
		exchange_id INTEGER NOT NULL REFERENCES exchanges(id) ON DELETE CASCADE,
		formula     TEXT NOT NULL,
		CONSTRAINT uq_parameterized_exchange UNIQUE (exchange_id)
	);

	CREATE INDEX IF NOT EXISTS idx_activities_database ON activities (database_name);
	CREATE INDEX IF NOT EXISTS idx_exchanges_activity ON exchanges (activity_id);
	CREATE INDEX IF NOT EXISTS idx_exchanges_group ON exchanges (group_name);
	CREATE INDEX IF NOT EXISTS idx_activity_parameters_group ON activity_parameters (group_name);
	CREATE INDEX IF NOT EXISTS idx_activity_parameters_activity ON activity_parameters (database_name, code);
	CREATE INDEX IF NOT EXISTS idx_parameterized_exchanges_group ON parameterized_exchanges (group_name);
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}
