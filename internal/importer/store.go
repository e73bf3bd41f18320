package importer

import (
	"context"

	"lcaparam/internal/store"
)

type Store interface {
	ListActivities(ctx context.Context, database string) ([]store.Activity, error)
	NewActivityParameters(ctx context.Context, records []store.ParameterRecord, group string, overwrite bool) error
	AddExchangesToGroup(ctx context.Context, group string, activity store.ActivityKey) (int, error)
}
