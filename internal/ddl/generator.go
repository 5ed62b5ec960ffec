package ddl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stackplane/stackplane/infra"
)

// SQL renders the operation as one or more executable DDL statements.
// Unqualified object names are qualified with the default database.
func (op Operation) SQL(defaultDatabase string) []string {
	switch {
	case op.CreateTable != nil:
		return []string{createTableSQL(op.CreateTable.Table, defaultDatabase)}
	case op.DropTable != nil:
		return []string{fmt.Sprintf("DROP TABLE %s",
			qualify(op.DropTable.Database, op.DropTable.Table, defaultDatabase))}
	case op.AddTableColumn != nil:
		o := op.AddTableColumn
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			qualify(o.Database, o.Table, defaultDatabase), columnSQL(o.Column))
		if o.AfterColumn != "" {
			stmt += " AFTER " + o.AfterColumn
		} else {
			stmt += " FIRST"
		}
		return []string{stmt}
	case op.DropTableColumn != nil:
		o := op.DropTableColumn
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			qualify(o.Database, o.Table, defaultDatabase), o.ColumnName)}
	case op.ModifyTableColumn != nil:
		o := op.ModifyTableColumn
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s",
			qualify(o.Database, o.Table, defaultDatabase), columnSQL(o.AfterColumn))}
	case op.ModifyTableTTL != nil:
		o := op.ModifyTableTTL
		table := qualify(o.Database, o.Table, defaultDatabase)
		if o.After == "" {
			return []string{fmt.Sprintf("ALTER TABLE %s REMOVE TTL", table)}
		}
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY TTL %s", table, o.After)}
	case op.ModifyTableSettings != nil:
		o := op.ModifyTableSettings
		if len(o.AfterSettings) == 0 {
			return nil
		}
		keys := make([]string, 0, len(o.AfterSettings))
		for k := range o.AfterSettings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s = '%s'", k, o.AfterSettings[k]))
		}
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY SETTING %s",
			qualify(o.Database, o.Table, defaultDatabase), strings.Join(pairs, ", "))}
	case op.AddTableIndex != nil:
		o := op.AddTableIndex
		idx := o.Index
		expr := idx.Type
		if len(idx.Arguments) > 0 {
			expr += "(" + strings.Join(idx.Arguments, ", ") + ")"
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD INDEX %s %s TYPE %s",
			qualify(o.Database, o.Table, defaultDatabase), idx.Name, idx.Expression, expr)
		if idx.Granularity > 0 {
			stmt += fmt.Sprintf(" GRANULARITY %d", idx.Granularity)
		}
		return []string{stmt}
	case op.DropTableIndex != nil:
		o := op.DropTableIndex
		return []string{fmt.Sprintf("ALTER TABLE %s DROP INDEX %s",
			qualify(o.Database, o.Table, defaultDatabase), o.IndexName)}
	case op.RawSQL != nil:
		return op.RawSQL.SQL
	default:
		return nil
	}
}

func qualify(database, name, defaultDatabase string) string {
	db := database
	if db == "" {
		db = defaultDatabase
	}
	if db == "" {
		return name
	}
	return db + "." + name
}

func createTableSQL(t infra.Table, defaultDatabase string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", qualify(t.Database, t.Name, defaultDatabase))

	cols := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		cols = append(cols, "  "+columnSQL(col))
	}
	b.WriteString(strings.Join(cols, ",\n"))
	b.WriteString("\n)")

	if t.Engine != "" {
		b.WriteString(" ENGINE = " + t.Engine)
	}
	if len(t.OrderBy) > 0 {
		fmt.Fprintf(&b, " ORDER BY (%s)", strings.Join(t.OrderBy, ", "))
	}
	if t.PartitionBy != "" {
		b.WriteString(" PARTITION BY " + t.PartitionBy)
	}
	if t.TTL != "" {
		b.WriteString(" TTL " + t.TTL)
	}
	if len(t.Settings) > 0 {
		keys := make([]string, 0, len(t.Settings))
		for k := range t.Settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s = '%s'", k, t.Settings[k]))
		}
		b.WriteString(" SETTINGS " + strings.Join(pairs, ", "))
	}
	return b.String()
}

func columnSQL(col infra.Column) string {
	var b strings.Builder
	b.WriteString(col.Name)
	b.WriteString(" ")
	b.WriteString(col.Type)
	if col.Required {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT " + *col.Default)
	}
	if col.TTL != "" {
		b.WriteString(" TTL " + col.TTL)
	}
	return b.String()
}
