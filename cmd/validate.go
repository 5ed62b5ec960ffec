package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stackplane/stackplane/internal/config"
	"github.com/stackplane/stackplane/internal/migration"
)

var validateCmd = &cobra.Command{
	Use:   "validate [plan-file]",
	Short: "Validate a migration plan file against the plan schema",
	Long: `Validate a plan file without applying it. The document is checked
against the plan schema: unknown operation kinds, missing required fields and
multi-kind operation entries are all rejected.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	planPath := ""
	if len(args) > 0 {
		planPath = args[0]
	}
	if planPath == "" {
		cfg, err := config.Load()
		if err != nil {
			fatalf("Failed to load config: %v", err)
		}
		planPath = cfg.Migration.PlanPath
	}

	plan, err := migration.LoadPlan(planPath)
	if err != nil {
		fatalf("Plan is invalid: %v", err)
	}

	log.Info().
		Str("path", planPath).
		Int("operations", plan.TotalOperations()).
		Msg("plan is valid")
}
