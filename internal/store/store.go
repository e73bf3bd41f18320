package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownDatabase    = errors.New("unknown database")
	ErrDuplicateParameter = errors.New("parameter already exists in group")
	ErrMultipleDatabases  = errors.New("parameters span multiple databases")
	ErrEmptyBatch         = errors.New("no parameters to create")
)

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	CreateDatabase(ctx context.Context, name string) error
	DatabaseExists(ctx context.Context, name string) (bool, error)
	ListDatabases(ctx context.Context) ([]string, error)
	UpsertActivity(ctx context.Context, a ActivityInput) error
	ListActivities(ctx context.Context, database string) ([]Activity, error)
	GetActivity(ctx context.Context, database, code string) (*Activity, error)

	NewActivityParameters(ctx context.Context, records []ParameterRecord, group string, overwrite bool) error
	AddExchangesToGroup(ctx context.Context, group string, activity ActivityKey) (int, error)
	ListGroups(ctx context.Context) ([]Group, error)
	ListActivityParameters(ctx context.Context, group string) ([]ActivityParameter, error)
	ListParameterizedExchanges(ctx context.Context, group string) ([]ParameterizedExchange, error)

	RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
