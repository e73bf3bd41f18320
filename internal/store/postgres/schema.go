package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// All statements run in one implicit transaction; IF NOT EXISTS keeps
	// repeated runs idempotent.
	ddl := `
CREATE TABLE IF NOT EXISTS databases (
    name    TEXT PRIMARY KEY,
    created TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activities (
    id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    database_name TEXT NOT NULL REFERENCES databases(name) ON DELETE CASCADE,
    code          TEXT NOT NULL,
    name          TEXT DEFAULT '',
    location      TEXT DEFAULT '',
    unit          TEXT DEFAULT '',
    CONSTRAINT uq_activity UNIQUE (database_name, code)
);

CREATE TABLE IF NOT EXISTS exchanges (
    id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    activity_id     BIGINT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
    input_database  TEXT DEFAULT '',
    input_code      TEXT DEFAULT '',
    type            TEXT DEFAULT '',
    amount          DOUBLE PRECISION NOT NULL DEFAULT 0,
    formula         TEXT,
    group_name      TEXT DEFAULT '',
    original_amount DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS parameter_groups (
    name    TEXT PRIMARY KEY,
    fresh   BOOLEAN DEFAULT FALSE,
    updated TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activity_parameters (
    id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    group_name    TEXT NOT NULL REFERENCES parameter_groups(name) ON DELETE CASCADE,
    database_name TEXT NOT NULL,
    code          TEXT,
    name          TEXT NOT NULL,
    formula       TEXT,
    amount        DOUBLE PRECISION NOT NULL,
    data          JSONB DEFAULT '{}',
    CONSTRAINT uq_activity_parameter UNIQUE (group_name, name)
);

CREATE TABLE IF NOT EXISTS parameterized_exchanges (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    group_name  TEXT NOT NULL REFERENCES parameter_groups(name) ON DELETE CASCADE,
    exchange_id BIGINT NOT NULL REFERENCES exchanges(id) ON DELETE CASCADE,
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
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
