package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"lcaparam/internal/store"
	"lcaparam/internal/table"
)

type createCall struct {
	group     string
	records   []store.ParameterRecord
	overwrite bool
}

type linkCall struct {
	group    string
	activity store.ActivityKey
}

type mockStore struct {
	databases   map[string][]store.Activity
	creates     []createCall
	links       []linkCall
	listCalls   []string
	failCreate  string
	linkedCount int
}

func (m *mockStore) ListActivities(ctx context.Context, database string) ([]store.Activity, error) {
	m.listCalls = append(m.listCalls, database)
	activities, ok := m.databases[database]
	if !ok {
		return nil, store.ErrUnknownDatabase
	}
	return activities, nil
}

func (m *mockStore) NewActivityParameters(ctx context.Context, records []store.ParameterRecord, group string, overwrite bool) error {
	if group == m.failCreate {
		return store.ErrDuplicateParameter
	}
	m.creates = append(m.creates, createCall{group: group, records: records, overwrite: overwrite})
	return nil
}

func (m *mockStore) AddExchangesToGroup(ctx context.Context, group string, activity store.ActivityKey) (int, error) {
	m.links = append(m.links, linkCall{group: group, activity: activity})
	return m.linkedCount, nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func exchange(formula, group string) store.Exchange {
	e := store.Exchange{Group: group}
	if formula != "" {
		e.Formula = strPtr(formula)
	}
	return e
}

func readTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(csv), table.Options{})
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	return tbl
}

const header = "group,database,name,amount,uncertainty type,loc,scale,minimum,maximum,formula\n"

func TestRunEndToEndExample(t *testing.T) {
	db := &mockStore{databases: map[string][]store.Activity{
		"db1": {{Database: "db1", Code: "act1", Exchanges: []store.Exchange{exchange("p1 * 2", "g1")}}},
	}}
	tbl := readTable(t, header+
		"g1,db1,p1,1.0,,,,,,\n"+
		"g1,db1,p2,2.0,,,,,,\n")

	result, err := Run(context.Background(), tbl, db, Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []createCall{{
		group: "g1",
		records: []store.ParameterRecord{
			{Group: "g1", Database: "db1", Name: "p1", Amount: 1.0, Code: strPtr("act1")},
			{Group: "g1", Database: "db1", Name: "p2", Amount: 2.0},
		},
	}}
	if diff := cmp.Diff(want, db.creates, cmp.AllowUnexported(createCall{})); diff != "" {
		t.Fatalf("create calls mismatch (-want +got):\n%s", diff)
	}

	if result.Groups != 1 || result.ParametersCreated != 2 || result.CodesResolved != 1 || result.CodesMissing != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(db.links) != 1 || db.links[0].group != "g1" || db.links[0].activity.Code != "act1" {
		t.Fatalf("unexpected links: %+v", db.links)
	}
}

func TestRunOneCallPerGroupInRowOrder(t *testing.T) {
	db := &mockStore{databases: map[string][]store.Activity{"db1": {}}}
	tbl := readTable(t, header+
		"g1,db1,a,1,,,,,,\n"+
		"g2,db1,b,2,,,,,,\n"+
		"NaN,db1,skipped,9,,,,,,\n"+
		"g1,db1,c,3,,,,,,\n"+
		"g2,db1,d,4,,,,,,\n")

	if _, err := Run(context.Background(), tbl, db, Options{Overwrite: true}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(db.creates) != 2 {
		t.Fatalf("expected 2 create calls, got %d", len(db.creates))
	}
	got := map[string][]string{}
	for _, call := range db.creates {
		if !call.overwrite {
			t.Fatalf("expected overwrite to be forwarded")
		}
		for _, r := range call.records {
			got[call.group] = append(got[call.group], r.Name)
		}
	}
	want := map[string][]string{"g1": {"a", "c"}, "g2": {"b", "d"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	if db.creates[0].group != "g1" {
		t.Fatalf("expected first-appearance group order, got %s first", db.creates[0].group)
	}
	if len(db.listCalls) != 1 {
		t.Fatalf("expected activities listed once per database, got %v", db.listCalls)
	}
}

func TestRunOptionalFields(t *testing.T) {
	db := &mockStore{databases: map[string][]store.Activity{"db1": {}}}
	tbl := readTable(t, header+
		"g1,db1,p1,1,2.0,0.5,0.1,0,1.5,p0 * 3\n"+
		"g1,db1,p2,2,,nan,,,,\n")

	if _, err := Run(context.Background(), tbl, db, Options{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []store.ParameterRecord{
		{
			Group:           "g1",
			Database:        "db1",
			Name:            "p1",
			Amount:          1,
			Formula:         strPtr("p0 * 3"),
			UncertaintyType: intPtr(2),
			Loc:             floatPtr(0.5),
			Scale:           floatPtr(0.1),
			Minimum:         floatPtr(0),
			Maximum:         floatPtr(1.5),
		},
		{Group: "g1", Database: "db1", Name: "p2", Amount: 2},
	}
	if diff := cmp.Diff(want, db.creates[0].records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCodeResolution(t *testing.T) {
	tests := []struct {
		name       string
		activities []store.Activity
		param      string
		wantCode   *string
	}{
		{
			name: "group must match",
			activities: []store.Activity{
				{Code: "a1", Exchanges: []store.Exchange{exchange("p1 * 2", "other")}},
			},
			param: "p1",
		},
		{
			name: "exchange without formula never matches",
			activities: []store.Activity{
				{Code: "a1", Exchanges: []store.Exchange{exchange("", "g1")}},
			},
			param: "p1",
		},
		{
			name: "substring match is a candidate",
			activities: []store.Activity{
				{Code: "a1", Exchanges: []store.Exchange{exchange("p10 * 2", "g1")}},
			},
			param:    "p1",
			wantCode: strPtr("a1"),
		},
		{
			name: "later matching activity overwrites earlier",
			activities: []store.Activity{
				{Code: "a1", Exchanges: []store.Exchange{exchange("p1", "g1")}},
				{Code: "a2", Exchanges: []store.Exchange{exchange("", ""), exchange("2 * p1", "g1")}},
				{Code: "a3", Exchanges: []store.Exchange{exchange("q", "g1")}},
			},
			param:    "p1",
			wantCode: strPtr("a2"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i := range tc.activities {
				tc.activities[i].Database = "db1"
			}
			db := &mockStore{databases: map[string][]store.Activity{"db1": tc.activities}}
			tbl := readTable(t, header+"g1,db1,"+tc.param+",1,,,,,,\n")

			if _, err := Run(context.Background(), tbl, db, Options{}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			got := db.creates[0].records[0].Code
			if diff := cmp.Diff(tc.wantCode, got); diff != "" {
				t.Fatalf("code mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunLinkModes(t *testing.T) {
	databases := map[string][]store.Activity{
		"db1": {
			{Database: "db1", Code: "a1", Exchanges: []store.Exchange{exchange("p1", "g1")}},
		},
		"db2": {
			{Database: "db2", Code: "b0", Exchanges: []store.Exchange{exchange("", "")}},
			{Database: "db2", Code: "b1", Exchanges: []store.Exchange{exchange("", ""), exchange("q1 + 1", "g2"), exchange("x", "g1")}},
			{Database: "db2", Code: "b2", Exchanges: []store.Exchange{exchange("q2", "g2")}},
			{Database: "db2", Code: "b3", Exchanges: []store.Exchange{exchange("r", "g3"), exchange("q1", "g2")}},
		},
	}
	csv := header +
		"g1,db1,p1,1,,,,,,\n" +
		"g2,db2,q1,1,,,,,,\n" +
		"g2,db2,q2,1,,,,,,\n"

	tests := []struct {
		mode LinkMode
		want []linkCall
	}{
		{
			mode: LinkFirst,
			want: []linkCall{
				{group: "g2", activity: store.ActivityKey{Database: "db2", Code: "b1"}},
			},
		},
		{
			mode: LinkEveryActivity,
			want: []linkCall{
				{group: "g2", activity: store.ActivityKey{Database: "db2", Code: "b1"}},
				{group: "g2", activity: store.ActivityKey{Database: "db2", Code: "b2"}},
				{group: "g3", activity: store.ActivityKey{Database: "db2", Code: "b3"}},
			},
		},
		{
			mode: LinkPerGroup,
			want: []linkCall{
				{group: "g1", activity: store.ActivityKey{Database: "db1", Code: "a1"}},
				{group: "g2", activity: store.ActivityKey{Database: "db2", Code: "b1"}},
				{group: "g2", activity: store.ActivityKey{Database: "db2", Code: "b2"}},
				{group: "g2", activity: store.ActivityKey{Database: "db2", Code: "b3"}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			db := &mockStore{databases: databases, linkedCount: 1}
			result, err := Run(context.Background(), readTable(t, csv), db, Options{LinkMode: tc.mode})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if diff := cmp.Diff(tc.want, db.links, cmp.AllowUnexported(linkCall{})); diff != "" {
				t.Fatalf("links mismatch (-want +got):\n%s", diff)
			}
			if len(result.Links) != len(tc.want) {
				t.Fatalf("expected %d links in result, got %d", len(tc.want), len(result.Links))
			}
		})
	}
}

func TestRunNoParametrizedExchange(t *testing.T) {
	db := &mockStore{databases: map[string][]store.Activity{
		"db1": {{Database: "db1", Code: "a1", Exchanges: []store.Exchange{exchange("", "")}}},
	}}
	if _, err := Run(context.Background(), readTable(t, header+"g1,db1,p1,1,,,,,,\n"), db, Options{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(db.links) != 0 {
		t.Fatalf("expected no links, got %+v", db.links)
	}
}

func TestRunEmptyTable(t *testing.T) {
	db := &mockStore{}
	result, err := Run(context.Background(), readTable(t, header), db, Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Groups != 0 || len(db.creates) != 0 || len(db.links) != 0 {
		t.Fatalf("expected nothing to happen, got %+v", result)
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("non-numeric amount", func(t *testing.T) {
		db := &mockStore{databases: map[string][]store.Activity{"db1": {}}}
		_, err := Run(context.Background(), readTable(t, header+"g1,db1,p1,lots,,,,,,\n"), db, Options{})
		if err == nil || !strings.Contains(err.Error(), "amount") {
			t.Fatalf("expected amount parse error, got %v", err)
		}
		if len(db.creates) != 0 {
			t.Fatalf("expected no parameters created")
		}
	})

	t.Run("non-numeric scale", func(t *testing.T) {
		db := &mockStore{databases: map[string][]store.Activity{"db1": {}}}
		_, err := Run(context.Background(), readTable(t, header+"g1,db1,p1,1,,,wide,,,\n"), db, Options{})
		if err == nil || !strings.Contains(err.Error(), "scale") {
			t.Fatalf("expected scale parse error, got %v", err)
		}
	})

	t.Run("unknown database", func(t *testing.T) {
		db := &mockStore{databases: map[string][]store.Activity{}}
		_, err := Run(context.Background(), readTable(t, header+"g1,nope,p1,1,,,,,,\n"), db, Options{})
		if !errors.Is(err, store.ErrUnknownDatabase) {
			t.Fatalf("expected unknown database, got %v", err)
		}
	})

	t.Run("store failure keeps earlier groups", func(t *testing.T) {
		db := &mockStore{databases: map[string][]store.Activity{"db1": {}}, failCreate: "g2"}
		tbl := readTable(t, header+"g1,db1,p1,1,,,,,,\ng2,db1,q1,1,,,,,,\ng3,db1,r1,1,,,,,,\n")
		result, err := Run(context.Background(), tbl, db, Options{})
		if !errors.Is(err, store.ErrDuplicateParameter) {
			t.Fatalf("expected duplicate parameter error, got %v", err)
		}
		if result == nil || result.Groups != 1 {
			t.Fatalf("expected partial result with one group, got %+v", result)
		}
		if len(db.creates) != 1 || len(db.links) != 0 {
			t.Fatalf("expected one group created and no links, got %d creates %d links", len(db.creates), len(db.links))
		}
	})

	t.Run("unknown link mode", func(t *testing.T) {
		_, err := Run(context.Background(), readTable(t, header), &mockStore{}, Options{LinkMode: "all"})
		if err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	db := &mockStore{
		databases: map[string][]store.Activity{
			"db1": {{Database: "db1", Code: "act1", Exchanges: []store.Exchange{exchange("p1 * 2", "g1")}}},
		},
		linkedCount: 1,
	}
	tbl := readTable(t, header+"g1,db1,p1,1,,,,,,\ng1,db1,p2,2,,,,,,\n")

	if _, err := Run(context.Background(), tbl, db, Options{Metrics: metrics}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := testutil.ToFloat64(metrics.parametersCreated.WithLabelValues("g1")); got != 2 {
		t.Fatalf("expected 2 parameters created, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.codes.WithLabelValues("resolved")); got != 1 {
		t.Fatalf("expected 1 resolved code, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.codes.WithLabelValues("missing")); got != 1 {
		t.Fatalf("expected 1 missing code, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.exchangesLinked.WithLabelValues("g1")); got != 1 {
		t.Fatalf("expected 1 linked exchange, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.lastRunTimestamp); got == 0 {
		t.Fatalf("expected last run timestamp to be set")
	}
}
