package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"lcaparam/internal/store"
)

type mockQuerier struct {
	groups      []store.Group
	params      []store.ActivityParameter
	activities  map[string][]store.Activity
	activityErr error

	lastParamsGroup string
	lastDatabase    string
}

func (m *mockQuerier) ListGroups(ctx context.Context) ([]store.Group, error) {
	return m.groups, nil
}

func (m *mockQuerier) ListActivityParameters(ctx context.Context, group string) ([]store.ActivityParameter, error) {
	m.lastParamsGroup = group
	return m.params, nil
}

func (m *mockQuerier) ListActivities(ctx context.Context, database string) ([]store.Activity, error) {
	m.lastDatabase = database
	if m.activityErr != nil {
		return nil, m.activityErr
	}
	return m.activities[database], nil
}

func (m *mockQuerier) GetActivity(ctx context.Context, database, code string) (*store.Activity, error) {
	for _, a := range m.activities[database] {
		if a.Code == code {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func strPtr(s string) *string { return &s }

func steelQuerier() *mockQuerier {
	return &mockQuerier{activities: map[string][]store.Activity{
		"db1": {{
			Database: "db1",
			Code:     "steel",
			Name:     "steel production",
			Exchanges: []store.Exchange{
				{InputDatabase: "db1", InputCode: "steel", Type: "production", Amount: 1},
				{InputDatabase: "db1", InputCode: "coal", Type: "technosphere", Amount: 0.7, Formula: strPtr("p1 * 2"), Group: "g1"},
			},
		}},
	}}
}

func TestListGroups(t *testing.T) {
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	server := NewServer(&mockQuerier{groups: []store.Group{{Name: "g1", Updated: updated}, {Name: "g2", Fresh: true}}}, "test")

	_, output, err := server.handleListGroups(context.Background(), nil, ListGroupsInput{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(output.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(output.Groups))
	}
	if output.Groups[0].Updated != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected updated: %q", output.Groups[0].Updated)
	}
	if !output.Groups[1].Fresh || output.Groups[1].Updated != "" {
		t.Fatalf("unexpected second group: %+v", output.Groups[1])
	}
}

func TestListParameters(t *testing.T) {
	kind := 2
	querier := &mockQuerier{params: []store.ActivityParameter{
		{ID: 1, ParameterRecord: store.ParameterRecord{Group: "g1", Database: "db1", Name: "p1", Amount: 1, Code: strPtr("steel"), UncertaintyType: &kind}},
		{ID: 2, ParameterRecord: store.ParameterRecord{Group: "g1", Database: "db1", Name: "p2", Amount: 2}},
	}}
	server := NewServer(querier, "test")

	_, output, err := server.handleListParameters(context.Background(), nil, ListParametersInput{Group: "g1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if querier.lastParamsGroup != "g1" {
		t.Fatalf("expected group filter g1, got %q", querier.lastParamsGroup)
	}
	if len(output.Parameters) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(output.Parameters))
	}
	if output.Parameters[0].Code != "steel" || *output.Parameters[0].UncertaintyType != 2 {
		t.Fatalf("unexpected first parameter: %+v", output.Parameters[0])
	}
	if output.Parameters[1].Code != "" {
		t.Fatalf("expected no code, got %q", output.Parameters[1].Code)
	}
}

func TestGetActivity(t *testing.T) {
	server := NewServer(steelQuerier(), "test")

	_, output, err := server.handleGetActivity(context.Background(), nil, GetActivityInput{Database: "db1", Code: "steel"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Name != "steel production" || len(output.Exchanges) != 2 {
		t.Fatalf("unexpected activity: %+v", output)
	}
	if output.Exchanges[1].Input != "db1/coal" || output.Exchanges[1].Formula != "p1 * 2" {
		t.Fatalf("unexpected exchange: %+v", output.Exchanges[1])
	}
}

func TestGetActivity_NotFound(t *testing.T) {
	server := NewServer(steelQuerier(), "test")

	_, _, err := server.handleGetActivity(context.Background(), nil, GetActivityInput{Database: "db1", Code: "missing"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetActivity_RequiresArguments(t *testing.T) {
	server := NewServer(steelQuerier(), "test")

	_, _, err := server.handleGetActivity(context.Background(), nil, GetActivityInput{Database: "db1"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestResolveCode(t *testing.T) {
	querier := steelQuerier()
	server := NewServer(querier, "test")

	_, output, err := server.handleResolveCode(context.Background(), nil, ResolveCodeInput{Database: "db1", Name: "p1", Group: "g1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !output.Found || output.Code != "steel" {
		t.Fatalf("unexpected resolution: %+v", output)
	}
	if querier.lastDatabase != "db1" {
		t.Fatalf("expected db1 to be scanned, got %q", querier.lastDatabase)
	}

	_, output, err = server.handleResolveCode(context.Background(), nil, ResolveCodeInput{Database: "db1", Name: "p1", Group: "g2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Found {
		t.Fatalf("expected no resolution in g2, got %+v", output)
	}
}

func TestResolveCode_StoreError(t *testing.T) {
	querier := steelQuerier()
	querier.activityErr = store.ErrUnknownDatabase
	server := NewServer(querier, "test")

	_, _, err := server.handleResolveCode(context.Background(), nil, ResolveCodeInput{Database: "nope", Name: "p1", Group: "g1"})
	if !errors.Is(err, store.ErrUnknownDatabase) {
		t.Fatalf("expected unknown database error, got %v", err)
	}
}
