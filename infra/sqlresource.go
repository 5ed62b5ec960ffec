package infra

import (
	"regexp"
	"strings"
)

// ReferenceKind identifies which domain a lineage reference points into.
type ReferenceKind string

const (
	RefTable       ReferenceKind = "table"
	RefSQLResource ReferenceKind = "sql_resource"
)

// Reference is a by-name edge to another infrastructure object. Edges are
// name references, never owning pointers; object lifetime is snapshot-scoped.
type Reference struct {
	Kind     ReferenceKind `json:"kind"`
	Name     string        `json:"name"`
	Database string        `json:"database,omitempty"`
}

// QualifiedName qualifies the reference with the default database when it
// carries none of its own.
func (r Reference) QualifiedName(defaultDatabase string) string {
	db := r.Database
	if db == "" {
		db = defaultDatabase
	}
	if db == "" {
		return r.Name
	}
	return db + "." + r.Name
}

// SQLResource is a view or materialized view managed through raw DDL: a list
// of setup statements, a list of teardown statements, and the data lineage
// that determines its position in the dependency graph.
type SQLResource struct {
	Name          string      `json:"name"`
	Database      string      `json:"database,omitempty"`
	Setup         []string    `json:"setup"`
	Teardown      []string    `json:"teardown"`
	PullsDataFrom []Reference `json:"pulls_data_from,omitempty"`
	PushesDataTo  []Reference `json:"pushes_data_to,omitempty"`
}

// QualifiedName returns the database-qualified identity of the resource.
func (s SQLResource) QualifiedName(defaultDatabase string) string {
	db := s.Database
	if db == "" {
		db = defaultDatabase
	}
	if db == "" {
		return s.Name
	}
	return db + "." + s.Name
}

// Equal compares two resources, normalizing SQL statements first so cosmetic
// formatting (whitespace, backticks, trailing semicolons) never reads as a
// material change.
func (s SQLResource) Equal(o SQLResource) bool {
	if s.Name != o.Name || s.Database != o.Database {
		return false
	}
	if !referencesEqual(s.PullsDataFrom, o.PullsDataFrom) ||
		!referencesEqual(s.PushesDataTo, o.PushesDataTo) {
		return false
	}
	if !statementsEqual(s.Setup, o.Setup) || !statementsEqual(s.Teardown, o.Teardown) {
		return false
	}
	return true
}

func referencesEqual(a, b []Reference) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func statementsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if NormalizeSQL(a[i]) != NormalizeSQL(b[i]) {
			return false
		}
	}
	return true
}

var sqlWhitespace = regexp.MustCompile(`\s+`)

// NormalizeSQL collapses runs of whitespace, strips identifier backticks and
// drops a trailing semicolon so that equivalent statements compare equal.
func NormalizeSQL(sql string) string {
	s := strings.ReplaceAll(sql, "`", "")
	s = sqlWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}
