package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/ddl"
	"github.com/stackplane/stackplane/internal/migration"
)

func TestDetectDriver(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want string
	}{
		{"postgres://localhost:5432/analytics", "postgres"},
		{"postgresql://localhost:5432/analytics", "postgres"},
		{"libsql://db.example.turso.io", "libsql"},
		{"wss://db.example.turso.io", "libsql"},
		{"./local.db", "sqlite"},
		{"file:local.db", "sqlite"},
	}

	for _, tc := range cases {
		if got := DetectDriver(tc.url); got != tc.want {
			t.Errorf("DetectDriver(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func testPlan() *migration.Plan {
	return &migration.Plan{
		CreatedAt: time.Now().UTC(),
		Operations: []ddl.Operation{
			{CreateTable: &ddl.CreateTable{Table: infra.Table{
				Name:    "events",
				Columns: []infra.Column{{Name: "id", Type: "String", Required: true}},
				Engine:  "MergeTree",
				OrderBy: []string{"id"},
			}}},
			{RawSQL: &ddl.RawSQL{
				SQL:         []string{"CREATE VIEW v1 AS SELECT id FROM events", "CREATE VIEW v2 AS SELECT id FROM v1"},
				Description: "Creating view chain",
			}},
		},
	}
}

func TestApplyPlanRunsAllStatementsInOrder(t *testing.T) {
	t.Parallel()

	var executed []string
	exec := func(ctx context.Context, query string) error {
		executed = append(executed, query)
		return nil
	}

	result, err := ApplyPlan(context.Background(), exec, testPlan(), "local")
	if err != nil {
		t.Fatalf("ApplyPlan returned error: %v", err)
	}

	if result.Applied != 2 {
		t.Errorf("Expected 2 applied operations, got %d", result.Applied)
	}
	if result.Statements != 3 {
		t.Errorf("Expected 3 executed statements, got %d", result.Statements)
	}
	if !strings.HasPrefix(executed[0], "CREATE TABLE") {
		t.Errorf("Expected CREATE TABLE first, got %q", executed[0])
	}
	if executed[2] != "CREATE VIEW v2 AS SELECT id FROM v1" {
		t.Errorf("Expected view chain to run in declared order, got %q", executed[2])
	}
}

func TestApplyPlanStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("syntax error")
	var count int
	exec := func(ctx context.Context, query string) error {
		count++
		if count == 2 {
			return boom
		}
		return nil
	}

	result, err := ApplyPlan(context.Background(), exec, testPlan(), "local")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped execution error, got %v", err)
	}

	if result.Applied != 1 {
		t.Errorf("Expected 1 fully applied operation, got %d", result.Applied)
	}
	if result.Statements != 1 {
		t.Errorf("Expected 1 completed statement, got %d", result.Statements)
	}
	if count != 2 {
		t.Errorf("Expected execution to stop after the failure, got %d calls", count)
	}
}

func TestApplyPlanEmptyPlan(t *testing.T) {
	t.Parallel()

	exec := func(ctx context.Context, query string) error {
		t.Fatal("exec should not be called for an empty plan")
		return nil
	}

	result, err := ApplyPlan(context.Background(), exec, &migration.Plan{}, "local")
	if err != nil {
		t.Fatalf("ApplyPlan returned error: %v", err)
	}
	if result.Applied != 0 || result.Statements != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}
