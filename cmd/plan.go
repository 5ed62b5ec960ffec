package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/config"
	"github.com/stackplane/stackplane/internal/state"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a migration plan from snapshot differences",
	Long: `Generate a migration plan by comparing the desired infrastructure
snapshot against the last applied state.

The plan lists every DDL operation, dependency-ordered: teardown of removed
and recreated objects first (dependents before dependencies), then setup
(dependencies before dependents). Identical snapshots produce an empty plan.`,
	Example: `  # Plan against the configured snapshot and write the plan file
  stackplane plan

  # Plan from an explicit snapshot to stdout
  stackplane plan --snapshot build/infrastructure.json --stdout`,
	Run: runPlan,
}

var (
	planSnapshot string
	planOut      string
	planStdout   bool
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planSnapshot, "snapshot", "", "Desired snapshot path (defaults to snapshot_path from stackplane.toml)")
	planCmd.Flags().StringVar(&planOut, "out", "", "Plan file path (defaults to plan_path from stackplane.toml)")
	planCmd.Flags().BoolVar(&planStdout, "stdout", false, "Write the plan to stdout instead of a file")
}

func runPlan(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}

	snapshotPath := planSnapshot
	if snapshotPath == "" {
		snapshotPath = cfg.SnapshotPath
	}
	desired, err := infra.LoadMap(snapshotPath)
	if err != nil {
		fatalf("Failed to load desired snapshot: %v", err)
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

	plan, changes, err := buildPlan(cfg, observed, desired)
	if err != nil {
		fatalf("Planning failed: %v", err)
	}

	log.Info().
		Int("olap", len(changes.Olap)).
		Int("streaming", len(changes.Streaming)).
		Int("workflows", len(changes.Workflows)).
		Int("web_apps", len(changes.WebApps)).
		Int("operations", plan.TotalOperations()).
		Msg("plan generated")

	if planStdout {
		data, err := plan.ToYAML()
		if err != nil {
			fatalf("Failed to serialize plan: %v", err)
		}
		fmt.Print(string(data))
		return
	}

	outPath := planOut
	if outPath == "" {
		outPath = cfg.Migration.PlanPath
	}
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatalf("Failed to create plan directory: %v", err)
		}
	}
	if err := plan.WriteFile(outPath); err != nil {
		fatalf("Failed to write plan: %v", err)
	}
	log.Info().Str("path", outPath).Msg("plan written")
}
