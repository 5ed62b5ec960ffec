package ddl

import (
	"testing"

	"github.com/stackplane/stackplane/infra"
)

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	def := "now()"
	op := Operation{CreateTable: &CreateTable{Table: infra.Table{
		Name: "events",
		Columns: []infra.Column{
			{Name: "id", Type: "String", Required: true},
			{Name: "ts", Type: "DateTime", Default: &def},
		},
		Engine:      "MergeTree",
		OrderBy:     []string{"id", "ts"},
		PartitionBy: "toYYYYMM(ts)",
		TTL:         "ts + INTERVAL 90 DAY",
		Settings:    map[string]string{"index_granularity": "8192"},
	}}}

	stmts := op.SQL("local")
	if len(stmts) != 1 {
		t.Fatalf("Expected one statement, got %d", len(stmts))
	}

	want := "CREATE TABLE local.events (\n" +
		"  id String NOT NULL,\n" +
		"  ts DateTime DEFAULT now()\n" +
		") ENGINE = MergeTree" +
		" ORDER BY (id, ts)" +
		" PARTITION BY toYYYYMM(ts)" +
		" TTL ts + INTERVAL 90 DAY" +
		" SETTINGS index_granularity = '8192'"
	if stmts[0] != want {
		t.Errorf("Unexpected DDL.\nwant: %s\ngot:  %s", want, stmts[0])
	}
}

func TestCreateTableSQLExplicitDatabaseWins(t *testing.T) {
	t.Parallel()

	op := Operation{DropTable: &DropTable{Table: "events", Database: "analytics"}}
	stmts := op.SQL("local")
	if stmts[0] != "DROP TABLE analytics.events" {
		t.Errorf("Expected explicit database to win, got %q", stmts[0])
	}
}

func TestAddColumnPositioning(t *testing.T) {
	t.Parallel()

	first := Operation{AddTableColumn: &AddTableColumn{
		Table:  "events",
		Column: infra.Column{Name: "id", Type: "String"},
	}}
	if got := first.SQL("local")[0]; got != "ALTER TABLE local.events ADD COLUMN id String FIRST" {
		t.Errorf("Expected FIRST placement, got %q", got)
	}

	after := Operation{AddTableColumn: &AddTableColumn{
		Table:       "events",
		Column:      infra.Column{Name: "source", Type: "String"},
		AfterColumn: "ts",
	}}
	if got := after.SQL("local")[0]; got != "ALTER TABLE local.events ADD COLUMN source String AFTER ts" {
		t.Errorf("Expected AFTER placement, got %q", got)
	}
}

func TestModifyTTLAndRemoveTTL(t *testing.T) {
	t.Parallel()

	modify := Operation{ModifyTableTTL: &ModifyTableTTL{Table: "events", After: "ts + INTERVAL 30 DAY"}}
	if got := modify.SQL("local")[0]; got != "ALTER TABLE local.events MODIFY TTL ts + INTERVAL 30 DAY" {
		t.Errorf("Unexpected MODIFY TTL statement: %q", got)
	}

	remove := Operation{ModifyTableTTL: &ModifyTableTTL{Table: "events", Before: "ts + INTERVAL 30 DAY"}}
	if got := remove.SQL("local")[0]; got != "ALTER TABLE local.events REMOVE TTL" {
		t.Errorf("Unexpected REMOVE TTL statement: %q", got)
	}
}

func TestModifySettingsSortsKeys(t *testing.T) {
	t.Parallel()

	op := Operation{ModifyTableSettings: &ModifyTableSettings{
		Table: "events",
		AfterSettings: map[string]string{
			"ttl_only_drop_parts": "1",
			"index_granularity":   "4096",
		},
	}}
	want := "ALTER TABLE local.events MODIFY SETTING index_granularity = '4096', ttl_only_drop_parts = '1'"
	if got := op.SQL("local")[0]; got != want {
		t.Errorf("Expected sorted settings, got %q", got)
	}
}

func TestAddIndexSQL(t *testing.T) {
	t.Parallel()

	op := Operation{AddTableIndex: &AddTableIndex{
		Table: "events",
		Index: infra.TableIndex{
			Name:        "idx_source",
			Expression:  "source",
			Type:        "bloom_filter",
			Arguments:   []string{"0.01"},
			Granularity: 4,
		},
	}}
	want := "ALTER TABLE local.events ADD INDEX idx_source source TYPE bloom_filter(0.01) GRANULARITY 4"
	if got := op.SQL("local")[0]; got != want {
		t.Errorf("Unexpected index DDL: %q", got)
	}
}

func TestRawSQLPassesThroughVerbatim(t *testing.T) {
	t.Parallel()

	stmts := []string{"CREATE VIEW v AS SELECT 1", "GRANT SELECT ON v TO reader"}
	op := Operation{RawSQL: &RawSQL{SQL: stmts}}

	got := op.SQL("local")
	if len(got) != 2 || got[0] != stmts[0] || got[1] != stmts[1] {
		t.Errorf("Expected raw statements verbatim, got %v", got)
	}
}
