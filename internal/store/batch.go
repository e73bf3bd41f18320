package store

import (
	"fmt"
	"strings"
)

// CheckParameterBatch applies the backend-independent checks of
// NewActivityParameters and returns the batch's single database.
func CheckParameterBatch(records []ParameterRecord, group string) (string, error) {
	if strings.TrimSpace(group) == "" {
		return "", fmt.Errorf("group name is required")
	}
	if len(records) == 0 {
		return "", ErrEmptyBatch
	}

	database := records[0].Database
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.Name) == "" {
			return "", fmt.Errorf("parameter %d: name is required", i)
		}
		if r.Database != database {
			return "", fmt.Errorf("%w: %q and %q", ErrMultipleDatabases, database, r.Database)
		}
		if _, ok := seen[r.Name]; ok {
			return "", fmt.Errorf("%w: %q repeated in batch for group %q", ErrDuplicateParameter, r.Name, group)
		}
		seen[r.Name] = struct{}{}
	}
	if strings.TrimSpace(database) == "" {
		return "", fmt.Errorf("database is required")
	}
	return database, nil
}
