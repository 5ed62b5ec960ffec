package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/config"
	"github.com/stackplane/stackplane/internal/ddl"
	"github.com/stackplane/stackplane/internal/migration"
	"github.com/stackplane/stackplane/internal/planvalidate"
	"github.com/stackplane/stackplane/internal/sqlcheck"
	"github.com/stackplane/stackplane/internal/state"
	"github.com/stackplane/stackplane/internal/stream"
)

// loadObserved returns the last-applied snapshot from the state store, or an
// empty snapshot when nothing has been applied yet.
func loadObserved(store *state.Store, defaultDatabase string) (*infra.Map, error) {
	observed, err := store.Load()
	if errors.Is(err, state.ErrNoSnapshot) {
		return infra.NewMap(defaultDatabase), nil
	}
	if err != nil {
		return nil, err
	}
	return observed, nil
}

// buildPlan runs the full planning pass: SQL syntax checking, normalization
// for ignored operation kinds, diffing, structural validation, dependency
// ordering and post-ordering filtering.
func buildPlan(cfg *config.Project, observed, desired *infra.Map) (*migration.Plan, *infra.Changes, error) {
	ignored, unknown := cfg.IgnoredOperations()
	for _, name := range unknown {
		log.Warn().Str("operation", name).Msg("unknown ignore_operations entry, skipping")
	}

	obs, des := observed, desired
	if cfg.Production && len(ignored) > 0 {
		obs = normalizeTables(observed, ignored)
		des = normalizeTables(desired, ignored)
	}

	changes := infra.Diff(obs, des)

	// Syntax issues surface as pseudo-changes ahead of the real changes so
	// validation reports them before anything else.
	if issues := sqlcheck.CheckResources(desired.SQLResources); len(issues) > 0 {
		pseudo := make([]infra.OlapChange, 0, len(issues)+len(changes.Olap))
		for _, issue := range issues {
			pseudo = append(pseudo, infra.InvalidObject(issue.Name, issue.Message))
		}
		changes.Olap = append(pseudo, changes.Olap...)
	}

	engineCfg := stream.EngineConfig{MaxMessageBytes: cfg.Streaming.MaxMessageBytes}
	if err := planvalidate.Validate(engineCfg, changes); err != nil {
		return nil, nil, err
	}

	plan, err := migration.FromChanges(changes, planDatabase(cfg, desired))
	if err != nil {
		return nil, nil, err
	}

	if cfg.Production {
		plan.FilterIgnored(ignored)
	}
	return plan, changes, nil
}

// normalizeTables strips ignored fields from every table so ignored drift
// never produces operations.
func normalizeTables(m *infra.Map, ignore []ddl.IgnorableOperation) *infra.Map {
	normalized := *m
	normalized.Tables = make(map[string]infra.Table, len(m.Tables))
	for name, table := range m.Tables {
		normalized.Tables[name] = ddl.NormalizeTableForDiff(table, ignore)
	}
	return &normalized
}

func planDatabase(cfg *config.Project, desired *infra.Map) string {
	if desired.DefaultDatabase != "" {
		return desired.DefaultDatabase
	}
	return cfg.Olap.Database
}

// statePath anchors the state store next to the config file when one was
// found, so the store location does not depend on the working directory.
func statePath(cfg *config.Project) string {
	if cfg.ConfigFilePath != "" {
		return filepath.Join(filepath.Dir(cfg.ConfigFilePath), state.DefaultPath)
	}
	return state.DefaultPath
}

func fatalf(format string, args ...any) {
	log.Error().Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}
