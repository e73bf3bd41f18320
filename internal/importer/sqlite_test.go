package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lcaparam/internal/store"
	"lcaparam/internal/store/sqlite"
)

func TestRunAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	client, err := sqlite.New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	defer client.Close(ctx)
	if err := client.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	if err := client.CreateDatabase(ctx, "db1"); err != nil {
		t.Fatalf("creating database: %v", err)
	}
	err = client.UpsertActivity(ctx, store.ActivityInput{
		Database: "db1",
		Code:     "act1",
		Exchanges: []store.ExchangeInput{
			{Type: "production", Amount: 1},
			{Type: "technosphere", Amount: 3, Formula: strPtr("p1 * 2"), Group: "g1"},
		},
	})
	if err != nil {
		t.Fatalf("upserting activity: %v", err)
	}

	tbl := readTable(t, header+"g1,db1,p1,1.0,,,,,,\ng1,db1,p2,2.0,,,,,,\n")
	result, err := Run(ctx, tbl, client, Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.ParametersCreated != 2 || len(result.Links) != 1 || result.Links[0].Exchanges != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	params, err := client.ListActivityParameters(ctx, "g1")
	if err != nil {
		t.Fatalf("listing parameters: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}
	if params[0].Code == nil || *params[0].Code != "act1" {
		t.Fatalf("expected p1 to carry act1, got %v", params[0].Code)
	}
	if params[1].Code != nil {
		t.Fatalf("expected p2 without code, got %v", *params[1].Code)
	}

	links, err := client.ListParameterizedExchanges(ctx, "g1")
	if err != nil {
		t.Fatalf("listing links: %v", err)
	}
	if len(links) != 1 || links[0].Formula != "p1 * 2" {
		t.Fatalf("unexpected links: %+v", links)
	}

	t.Run("re-running is not idempotent", func(t *testing.T) {
		_, err := Run(ctx, tbl, client, Options{})
		if !errors.Is(err, store.ErrDuplicateParameter) {
			t.Fatalf("expected duplicate parameter error, got %v", err)
		}
	})

	t.Run("overwrite replaces", func(t *testing.T) {
		if _, err := Run(ctx, tbl, client, Options{Overwrite: true}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestRunRejectsInfiniteUncertaintyBeforeStore(t *testing.T) {
	ctx := context.Background()
	client, err := sqlite.New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	defer client.Close(ctx)
	if err := client.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	if err := client.CreateDatabase(ctx, "db1"); err != nil {
		t.Fatalf("creating database: %v", err)
	}

	tbl := readTable(t, header+"g1,db1,p1,1.0,4,1,0.5,0,inf,\n")
	_, err = Run(ctx, tbl, client, Options{})
	if !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("expected invalid number error, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 2: parsing maximum") {
		t.Fatalf("expected row context, got %v", err)
	}

	params, err := client.ListActivityParameters(ctx, "g1")
	if err != nil {
		t.Fatalf("listing parameters: %v", err)
	}
	if len(params) != 0 {
		t.Fatalf("expected no parameters stored, got %d", len(params))
	}
}
