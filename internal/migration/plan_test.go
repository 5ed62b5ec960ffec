package migration

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/ddl"
)

func planChanges() *infra.Changes {
	oldView := infra.SQLResource{
		Name:          "stale_mv",
		Setup:         []string{"CREATE MATERIALIZED VIEW stale_mv AS SELECT id FROM events"},
		Teardown:      []string{"DROP VIEW stale_mv"},
		PullsDataFrom: []infra.Reference{{Kind: infra.RefTable, Name: "events"}},
	}
	newTable := infra.Table{
		Name:    "users",
		Columns: []infra.Column{{Name: "id", Type: "String", Required: true}},
		Engine:  "MergeTree",
		OrderBy: []string{"id"},
	}
	return &infra.Changes{Olap: []infra.OlapChange{
		infra.SQLResourceChanged(infra.Removed(oldView)),
		infra.TableChanged(infra.Added(newTable)),
	}}
}

func TestFromChangesTeardownPrecedesSetup(t *testing.T) {
	t.Parallel()

	plan, err := FromChanges(planChanges(), "local")
	if err != nil {
		t.Fatalf("FromChanges returned error: %v", err)
	}
	if plan.TotalOperations() != 2 {
		t.Fatalf("Expected 2 operations, got %d", plan.TotalOperations())
	}
	if plan.Operations[0].RawSQL == nil {
		t.Errorf("Expected the teardown operation first, got %s", plan.Operations[0].Describe())
	}
	if plan.Operations[1].CreateTable == nil {
		t.Errorf("Expected the setup operation second, got %s", plan.Operations[1].Describe())
	}
	if plan.CreatedAt.IsZero() || !plan.CreatedAt.Equal(plan.CreatedAt.Truncate(time.Second)) {
		t.Errorf("CreatedAt must be set with second precision, got %v", plan.CreatedAt)
	}
}

func TestFromChangesOrderingErrorYieldsNoPlan(t *testing.T) {
	t.Parallel()

	changes := &infra.Changes{Olap: []infra.OlapChange{
		infra.InvalidObject("broken", "bad SQL"),
	}}

	plan, err := FromChanges(changes, "local")
	if plan != nil {
		t.Error("Expected no partial plan on ordering failure")
	}
	var orderErr *ddl.PlanOrderingError
	if !errors.As(err, &orderErr) {
		t.Fatalf("Expected PlanOrderingError, got %v", err)
	}
}

func TestFilterIgnored(t *testing.T) {
	t.Parallel()

	plan := &Plan{Operations: []ddl.Operation{
		{AddTableIndex: &ddl.AddTableIndex{Table: "events", Index: infra.TableIndex{Name: "idx"}}},
		{DropTable: &ddl.DropTable{Table: "stale"}},
		{ModifyTableTTL: &ddl.ModifyTableTTL{Table: "events", After: "ts + INTERVAL 7 DAY"}},
	}}

	plan.FilterIgnored([]ddl.IgnorableOperation{ddl.IgnoreAddTableIndex, ddl.IgnoreModifyTableTTL})

	if len(plan.Operations) != 1 || plan.Operations[0].DropTable == nil {
		t.Errorf("Expected only the drop to survive, got %v", plan.Operations)
	}
}

func TestToYAMLDeterministicAndSorted(t *testing.T) {
	t.Parallel()

	plan, err := FromChanges(planChanges(), "local")
	if err != nil {
		t.Fatalf("FromChanges returned error: %v", err)
	}
	plan.CreatedAt = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	a, err := plan.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML returned error: %v", err)
	}
	b, err := plan.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML returned error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Identical plans must serialize byte-identically")
	}

	text := string(a)
	if strings.Index(text, "created_at") > strings.Index(text, "operations") {
		t.Errorf("Top-level keys not sorted:\n%s", text)
	}
}

func TestPlanRoundTripThroughFile(t *testing.T) {
	t.Parallel()

	plan, err := FromChanges(planChanges(), "local")
	if err != nil {
		t.Fatalf("FromChanges returned error: %v", err)
	}

	data, err := plan.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML returned error: %v", err)
	}

	parsed, err := ParsePlan(data)
	if err != nil {
		t.Fatalf("ParsePlan returned error: %v", err)
	}
	if diff := cmp.Diff(plan, parsed); diff != "" {
		t.Errorf("Round trip mismatch (-written +parsed):\n%s", diff)
	}
}

func TestParsePlanRejectsUnknownOperation(t *testing.T) {
	t.Parallel()

	doc := `created_at: "2026-08-23T12:00:00Z"
operations:
  - truncate_table:
      table: events
`
	if _, err := ParsePlan([]byte(doc)); err == nil {
		t.Fatal("Expected schema violation for unknown operation kind")
	}
}

func TestParsePlanRejectsMultiKindOperation(t *testing.T) {
	t.Parallel()

	doc := `created_at: "2026-08-23T12:00:00Z"
operations:
  - drop_table:
      table: events
    drop_table_column:
      table: events
      column_name: id
`
	if _, err := ParsePlan([]byte(doc)); err == nil {
		t.Fatal("Expected schema violation for an operation entry with two kinds")
	}
}

func TestNewPlanBundleDriftDetection(t *testing.T) {
	t.Parallel()

	remote := infra.NewMap("local")
	local := infra.NewMap("local")
	local.Tables["events"] = infra.Table{
		Name:    "events",
		Columns: []infra.Column{{Name: "id", Type: "String"}},
		Engine:  "MergeTree",
	}

	bundle, err := NewPlanBundle(remote, local)
	if err != nil {
		t.Fatalf("NewPlanBundle returned error: %v", err)
	}
	if bundle.DBMigration.TotalOperations() != 1 {
		t.Fatalf("Expected one operation, got %d", bundle.DBMigration.TotalOperations())
	}

	drifted, err := bundle.RemoteDrifted(remote)
	if err != nil {
		t.Fatalf("RemoteDrifted returned error: %v", err)
	}
	if drifted {
		t.Error("Unchanged remote must not read as drifted")
	}

	changed := infra.NewMap("local")
	changed.Tables["surprise"] = infra.Table{Name: "surprise", Columns: []infra.Column{{Name: "id", Type: "String"}}}
	drifted, err = bundle.RemoteDrifted(changed)
	if err != nil {
		t.Fatalf("RemoteDrifted returned error: %v", err)
	}
	if !drifted {
		t.Error("A changed remote must read as drifted")
	}
}
