package infra

import "reflect"

// Table describes an OLAP table or the target table of a materialized view.
type Table struct {
	Name        string            `json:"name"`
	Database    string            `json:"database,omitempty"`
	Columns     []Column          `json:"columns"`
	Engine      string            `json:"engine,omitempty"`
	OrderBy     []string          `json:"order_by,omitempty"`
	PartitionBy string            `json:"partition_by,omitempty"`
	Indexes     []TableIndex      `json:"indexes,omitempty"`
	Settings    map[string]string `json:"settings,omitempty"`
	TTL         string            `json:"ttl,omitempty"`
	Version     string            `json:"version,omitempty"`
}

// Column describes a single table column.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Required   bool    `json:"required,omitempty"`
	PrimaryKey bool    `json:"primary_key,omitempty"`
	Default    *string `json:"default,omitempty"`
	TTL        string  `json:"ttl,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

// TableIndex describes a secondary (data-skipping) index on a table.
type TableIndex struct {
	Name        string   `json:"name"`
	Expression  string   `json:"expression"`
	Type        string   `json:"type"`
	Arguments   []string `json:"arguments,omitempty"`
	Granularity int      `json:"granularity,omitempty"`
}

// QualifiedName returns the database-qualified identity of the table. Tables
// without an explicit database belong to the default one.
func (t Table) QualifiedName(defaultDatabase string) string {
	db := t.Database
	if db == "" {
		db = defaultDatabase
	}
	if db == "" {
		return t.Name
	}
	return db + "." + t.Name
}

// Equal reports structural (deep value) equality.
func (t Table) Equal(o Table) bool {
	return reflect.DeepEqual(t, o)
}

// Equal reports structural equality of two columns.
func (c Column) Equal(o Column) bool {
	return reflect.DeepEqual(c, o)
}
