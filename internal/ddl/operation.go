package ddl

import (
	"fmt"

	"github.com/stackplane/stackplane/infra"
)

// Operation is an atomic, already-ordered unit of DDL work. Exactly one field
// is set. Once produced, an operation carries no dependency information of
// its own; ordering is fully resolved by its position in the plan, and each
// variant is minimized to the fields needed to execute it.
type Operation struct {
	CreateTable         *CreateTable         `json:"create_table,omitempty"`
	DropTable           *DropTable           `json:"drop_table,omitempty"`
	AddTableColumn      *AddTableColumn      `json:"add_table_column,omitempty"`
	DropTableColumn     *DropTableColumn     `json:"drop_table_column,omitempty"`
	ModifyTableColumn   *ModifyTableColumn   `json:"modify_table_column,omitempty"`
	ModifyTableTTL      *ModifyTableTTL      `json:"modify_table_ttl,omitempty"`
	ModifyTableSettings *ModifyTableSettings `json:"modify_table_settings,omitempty"`
	AddTableIndex       *AddTableIndex       `json:"add_table_index,omitempty"`
	DropTableIndex      *DropTableIndex      `json:"drop_table_index,omitempty"`
	RawSQL              *RawSQL              `json:"raw_sql,omitempty"`
}

// CreateTable creates a new table from its full definition.
type CreateTable struct {
	Table infra.Table `json:"table"`
}

// DropTable drops an existing table; only the identity is needed.
type DropTable struct {
	Table    string `json:"table"`
	Database string `json:"database,omitempty"`
}

// AddTableColumn adds a column, optionally positioned after another column.
type AddTableColumn struct {
	Table       string       `json:"table"`
	Database    string       `json:"database,omitempty"`
	Column      infra.Column `json:"column"`
	AfterColumn string       `json:"after_column,omitempty"`
}

// DropTableColumn drops a column by name.
type DropTableColumn struct {
	Table      string `json:"table"`
	Database   string `json:"database,omitempty"`
	ColumnName string `json:"column_name"`
}

// ModifyTableColumn alters a column in place.
type ModifyTableColumn struct {
	Table        string       `json:"table"`
	Database     string       `json:"database,omitempty"`
	BeforeColumn infra.Column `json:"before_column"`
	AfterColumn  infra.Column `json:"after_column"`
}

// ModifyTableTTL changes or removes the table-level TTL.
type ModifyTableTTL struct {
	Table    string `json:"table"`
	Database string `json:"database,omitempty"`
	Before   string `json:"before,omitempty"`
	After    string `json:"after,omitempty"`
}

// ModifyTableSettings rewrites table settings.
type ModifyTableSettings struct {
	Table          string            `json:"table"`
	Database       string            `json:"database,omitempty"`
	BeforeSettings map[string]string `json:"before_settings,omitempty"`
	AfterSettings  map[string]string `json:"after_settings,omitempty"`
}

// AddTableIndex adds a secondary index.
type AddTableIndex struct {
	Table    string           `json:"table"`
	Database string           `json:"database,omitempty"`
	Index    infra.TableIndex `json:"index"`
}

// DropTableIndex drops a secondary index by name.
type DropTableIndex struct {
	Table     string `json:"table"`
	Database  string `json:"database,omitempty"`
	IndexName string `json:"index_name"`
}

// RawSQL carries the verbatim statements of a SQL resource.
type RawSQL struct {
	SQL         []string `json:"sql"`
	Description string   `json:"description,omitempty"`
}

// Describe returns a human-readable summary for logging and review output.
func (op Operation) Describe() string {
	switch {
	case op.CreateTable != nil:
		return fmt.Sprintf("Creating table %q", op.CreateTable.Table.Name)
	case op.DropTable != nil:
		return fmt.Sprintf("Dropping table %q", op.DropTable.Table)
	case op.AddTableColumn != nil:
		return fmt.Sprintf("Adding column %q to table %q", op.AddTableColumn.Column.Name, op.AddTableColumn.Table)
	case op.DropTableColumn != nil:
		return fmt.Sprintf("Dropping column %q from table %q", op.DropTableColumn.ColumnName, op.DropTableColumn.Table)
	case op.ModifyTableColumn != nil:
		return fmt.Sprintf("Modifying column %q in table %q", op.ModifyTableColumn.AfterColumn.Name, op.ModifyTableColumn.Table)
	case op.ModifyTableTTL != nil:
		return fmt.Sprintf("Modifying TTL for table %q", op.ModifyTableTTL.Table)
	case op.ModifyTableSettings != nil:
		return fmt.Sprintf("Modifying settings for table %q", op.ModifyTableSettings.Table)
	case op.AddTableIndex != nil:
		return fmt.Sprintf("Adding index %q to table %q", op.AddTableIndex.Index.Name, op.AddTableIndex.Table)
	case op.DropTableIndex != nil:
		return fmt.Sprintf("Dropping index %q from table %q", op.DropTableIndex.IndexName, op.DropTableIndex.Table)
	case op.RawSQL != nil:
		if op.RawSQL.Description != "" {
			return op.RawSQL.Description
		}
		return "Running raw SQL"
	default:
		return "No-op"
	}
}
