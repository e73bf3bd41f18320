package store

import (
	"errors"
	"testing"
)

func TestCheckParameterBatch(t *testing.T) {
	tests := []struct {
		name    string
		records []ParameterRecord
		group   string
		wantErr error
		wantDB  string
	}{
		{
			name:    "single database",
			records: []ParameterRecord{{Name: "p1", Database: "db1"}, {Name: "p2", Database: "db1"}},
			group:   "g1",
			wantDB:  "db1",
		},
		{
			name:    "empty batch",
			group:   "g1",
			wantErr: ErrEmptyBatch,
		},
		{
			name:    "multiple databases",
			records: []ParameterRecord{{Name: "p1", Database: "db1"}, {Name: "p2", Database: "db2"}},
			group:   "g1",
			wantErr: ErrMultipleDatabases,
		},
		{
			name:    "duplicate name in batch",
			records: []ParameterRecord{{Name: "p1", Database: "db1"}, {Name: "p1", Database: "db1"}},
			group:   "g1",
			wantErr: ErrDuplicateParameter,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, err := CheckParameterBatch(tc.records, tc.group)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if db != tc.wantDB {
				t.Fatalf("expected database %q, got %q", tc.wantDB, db)
			}
		})
	}

	t.Run("missing group", func(t *testing.T) {
		if _, err := CheckParameterBatch([]ParameterRecord{{Name: "p1", Database: "db1"}}, " "); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing name", func(t *testing.T) {
		if _, err := CheckParameterBatch([]ParameterRecord{{Database: "db1"}}, "g1"); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing database", func(t *testing.T) {
		if _, err := CheckParameterBatch([]ParameterRecord{{Name: "p1"}}, "g1"); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestSplitParams(t *testing.T) {
	positional, named := SplitParams(map[string]any{"1": "a", "2": 3, "group": "g1", "4": "gap"})
	if len(positional) != 2 || positional[0] != "a" || positional[1] != 3 {
		t.Fatalf("unexpected positional params: %v", positional)
	}
	if len(named) != 2 || named["group"] != "g1" || named["4"] != "gap" {
		t.Fatalf("unexpected named params: %v", named)
	}
}
