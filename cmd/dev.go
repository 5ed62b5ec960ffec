package cmd

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/config"
	"github.com/stackplane/stackplane/internal/executor"
	"github.com/stackplane/stackplane/internal/state"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Watch the snapshot and continuously reconcile",
	Long: `Watch the desired snapshot file and re-plan on every change. When the
analytical store is configured each plan is applied immediately and the
applied state advances, so the store tracks the snapshot as it is edited.`,
	Run: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)
}

func runDev(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatalf("Failed to create watcher: %v", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors replace files on save, which
	// drops a file-level watch.
	snapshotPath := cfg.SnapshotPath
	watchDir := filepath.Dir(snapshotPath)
	if err := watcher.Add(watchDir); err != nil {
		fatalf("Failed to watch %s: %v", watchDir, err)
	}

	log.Info().Str("snapshot", snapshotPath).Msg("watching for changes")
	reconcileOnce(ctx, cfg)

	// Editors fire several events per save; coalesce them.
	var debounce *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(snapshotPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("watch error")

		case <-trigger:
			reconcileOnce(ctx, cfg)
		}
	}
}

// reconcileOnce runs one plan-and-apply pass. Failures are logged and leave
// the applied state untouched; the next snapshot edit retries.
func reconcileOnce(ctx context.Context, cfg *config.Project) {
	desired, err := infra.LoadMap(cfg.SnapshotPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load snapshot")
		return
	}

	store, err := state.Open(statePath(cfg))
	if err != nil {
		log.Error().Err(err).Msg("failed to open state store")
		return
	}
	defer func() { _ = store.Close() }()

	observed, err := loadObserved(store, planDatabase(cfg, desired))
	if err != nil {
		log.Error().Err(err).Msg("failed to load applied state")
		return
	}

	plan, changes, err := buildPlan(cfg, observed, desired)
	if err != nil {
		log.Error().Err(err).Msg("planning failed")
		return
	}

	if changes.Empty() {
		log.Debug().Msg("no changes")
		return
	}

	if plan.TotalOperations() > 0 {
		if cfg.Olap.URL == "" {
			log.Warn().Int("operations", plan.TotalOperations()).
				Msg("DDL changes pending but no olap.url configured, skipping apply")
			return
		}

		driver := executor.DetectDriver(cfg.Olap.URL)
		db, err := sql.Open(driver, cfg.Olap.URL)
		if err != nil {
			log.Error().Err(err).Msg("failed to open database")
			return
		}
		defer func() { _ = db.Close() }()

		if _, err := executor.ApplyPlan(ctx, executor.DBExec(db), plan, planDatabase(cfg, desired)); err != nil {
			log.Error().Err(err).Msg("apply failed")
			return
		}
	}

	reconcileRuntimes(ctx, cfg, observed, desired)

	if err := store.Save(desired); err != nil {
		log.Error().Err(err).Msg("failed to record applied state")
		return
	}
	log.Info().Int("operations", plan.TotalOperations()).Msg("reconciled")
}
