package sqlite

import "testing"

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "memory", input: "sqlite://:memory:", expected: ":memory:"},
		{name: "memory with query", input: "sqlite://:memory:?_pragma=foreign_keys(1)", expected: ":memory:?_pragma=foreign_keys(1)"},
		{name: "absolute path", input: "sqlite:///var/lib/lca.db", expected: "/var/lib/lca.db"},
		{name: "explicit relative", input: "sqlite://./lca.db", expected: "./lca.db"},
		{name: "bare relative", input: "sqlite://data/lca.db", expected: "./data/lca.db"},
		{name: "escaped path", input: "sqlite://my%20study.db", expected: "./my study.db"},
		{name: "query kept", input: "sqlite://lca.db?cache=shared", expected: "./lca.db?cache=shared"},
		{name: "wrong scheme", input: "postgres://localhost/lca", wantErr: true},
		{name: "empty path", input: "sqlite://", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDSN(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
