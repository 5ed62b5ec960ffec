// Package sqlcheck answers yes/no syntax questions about SQL-bearing object
// definitions. The dialect is fixed; callers get an error or nothing.
package sqlcheck

import (
	"fmt"
	"sort"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/stackplane/stackplane/infra"
)

// ValidateSQL parses a single statement and reports a syntax error, if any.
func ValidateSQL(sql string) error {
	if _, err := pg_query.Parse(sql); err != nil {
		return fmt.Errorf("invalid SQL: %w", err)
	}
	return nil
}

// CheckResources validates every SQL statement of every resource in the
// snapshot and returns one issue per malformed definition, in sorted name
// order. Issues become validation pseudo-changes that block the planning
// pass.
func CheckResources(resources map[string]infra.SQLResource) []infra.ValidationIssue {
	var issues []infra.ValidationIssue

	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		resource := resources[name]
		if issue := checkResource(resource); issue != "" {
			issues = append(issues, infra.ValidationIssue{Name: name, Message: issue})
		}
	}
	return issues
}

func checkResource(r infra.SQLResource) string {
	for _, stmt := range r.Setup {
		if err := ValidateSQL(stmt); err != nil {
			return fmt.Sprintf("setup statement failed to parse: %v", err)
		}
	}
	for _, stmt := range r.Teardown {
		if err := ValidateSQL(stmt); err != nil {
			return fmt.Sprintf("teardown statement failed to parse: %v", err)
		}
	}
	return ""
}
