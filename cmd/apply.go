package cmd

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/config"
	"github.com/stackplane/stackplane/internal/executor"
	"github.com/stackplane/stackplane/internal/migration"
	"github.com/stackplane/stackplane/internal/orchestration"
	"github.com/stackplane/stackplane/internal/state"
	"github.com/stackplane/stackplane/internal/webapp"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a migration plan to the analytical store",
	Long: `Apply the operations of a previously generated plan, in order, to the
configured analytical store. On success the desired snapshot is recorded as
the new applied state, and workflow and web app changes are pushed to their
runtimes.`,
	Example: `  # Apply the default plan file
  stackplane apply

  # Apply an explicit plan against an explicit database
  stackplane apply --plan migrations/plan.yaml --url postgres://localhost:5432/analytics`,
	Run: runApply,
}

var (
	applyPlanPath string
	applyURL      string
	applyDDLOnly  bool
)

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVar(&applyPlanPath, "plan", "", "Plan file path (defaults to plan_path from stackplane.toml)")
	applyCmd.Flags().StringVar(&applyURL, "url", "", "Database connection URL (defaults to olap.url from stackplane.toml)")
	applyCmd.Flags().BoolVar(&applyDDLOnly, "ddl-only", false, "Apply DDL operations only, skipping workflow and web app reconciliation")
}

func runApply(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}

	planPath := applyPlanPath
	if planPath == "" {
		planPath = cfg.Migration.PlanPath
	}
	plan, err := migration.LoadPlan(planPath)
	if err != nil {
		fatalf("Failed to load plan: %v", err)
	}

	desired, err := infra.LoadMap(cfg.SnapshotPath)
	if err != nil {
		fatalf("Failed to load desired snapshot: %v", err)
	}

	url := applyURL
	if url == "" {
		url = cfg.Olap.URL
	}
	if url == "" {
		fatalf("No database configured: set olap.url in stackplane.toml or pass --url")
	}

	driver := executor.DetectDriver(url)
	db, err := sql.Open(driver, url)
	if err != nil {
		fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	result, err := executor.ApplyPlan(ctx, executor.DBExec(db), plan, planDatabase(cfg, desired))
	if err != nil {
		fatalf("Apply failed after %d operation(s): %v", result.Applied, err)
	}

	store, err := state.Open(statePath(cfg))
	if err != nil {
		fatalf("Failed to open state store: %v", err)
	}
	defer func() { _ = store.Close() }()

	observed, err := loadObserved(store, planDatabase(cfg, desired))
	if err != nil {
		fatalf("Failed to load applied state: %v", err)
	}

	if !applyDDLOnly {
		reconcileRuntimes(ctx, cfg, observed, desired)
	}

	if err := store.Save(desired); err != nil {
		fatalf("Failed to record applied state: %v", err)
	}
	log.Info().Int("operations", result.Applied).Msg("apply complete")
}

// reconcileRuntimes pushes workflow and web app changes to their runtimes.
// These domains have no plan file; their changes are recomputed from the
// snapshots and executed directly.
func reconcileRuntimes(ctx context.Context, cfg *config.Project, observed, desired *infra.Map) {
	changes := infra.Diff(observed, desired)

	if len(changes.Workflows) > 0 {
		if cfg.Orchestration.Endpoint == "" {
			log.Warn().Msg("workflow changes present but no orchestration endpoint configured")
		} else {
			client := orchestration.NewHTTPClient(cfg.Orchestration.Endpoint)
			orchestration.ExecuteChanges(ctx, client, changes.Workflows)
		}
	}

	if len(changes.WebApps) > 0 {
		if cfg.WebApps.Endpoint == "" {
			log.Warn().Msg("web app changes present but no web app endpoint configured")
		} else {
			rt := webapp.NewHTTPRuntime(cfg.WebApps.Endpoint)
			webapp.ExecuteChanges(ctx, rt, changes.WebApps)
		}
	}
}
