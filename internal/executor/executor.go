// Package executor applies a migration plan's operations to a live analytical
// store over database/sql. Drivers are registered by the main package; this
// package only maps connection URLs to driver names and runs statements.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stackplane/stackplane/internal/migration"
)

// Result summarizes an apply run.
type Result struct {
	// Applied counts operations that ran to completion.
	Applied int
	// Statements counts individual DDL statements executed.
	Statements int
}

// DetectDriver maps a connection URL to a registered database/sql driver
// name. Plain paths fall back to the embedded SQLite driver, which keeps
// local development dependency-free.
func DetectDriver(url string) string {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(url, "libsql://"), strings.HasPrefix(url, "wss://"), strings.HasPrefix(url, "ws://"):
		return "libsql"
	default:
		return "sqlite"
	}
}

// ExecFunc executes one DDL statement. Defined as a function type so tests
// can fake execution without a live server; DBExec adapts a *sql.DB.
type ExecFunc func(ctx context.Context, query string) error

// DBExec wraps a database handle as an ExecFunc.
func DBExec(db *sql.DB) ExecFunc {
	return func(ctx context.Context, query string) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}

// ApplyPlan executes every operation of the plan in order, stopping at the
// first failure. Operations already applied stay applied; the plan is ordered
// so a partial run leaves the store in a dependency-consistent prefix state.
func ApplyPlan(ctx context.Context, exec ExecFunc, plan *migration.Plan, defaultDatabase string) (*Result, error) {
	result := &Result{}

	for i, op := range plan.Operations {
		desc := op.Describe()
		log.Info().Int("operation", i+1).Int("total", len(plan.Operations)).Msg(desc)

		for _, stmt := range op.SQL(defaultDatabase) {
			log.Debug().Str("sql", stmt).Msg("executing statement")
			if err := exec(ctx, stmt); err != nil {
				return result, fmt.Errorf("operation %d (%s) failed: %w", i+1, desc, err)
			}
			result.Statements++
		}
		result.Applied++
	}

	log.Info().Int("applied", result.Applied).Int("statements", result.Statements).Msg("plan applied")
	return result, nil
}
