package validate

import (
	"context"

	"lcaparam/internal/store"
)

type Checker interface {
	DatabaseExists(ctx context.Context, name string) (bool, error)
	ListActivities(ctx context.Context, database string) ([]store.Activity, error)
	ListActivityParameters(ctx context.Context, group string) ([]store.ActivityParameter, error)
}
