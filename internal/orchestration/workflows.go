package orchestration

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/stackplane/stackplane/infra"
)

// ExecuteChanges walks the workflow change list and drives the orchestrator
// to convergence.
//
// Change handling:
//   - Added with a schedule: terminate (handles upgrades, not-found is fine)
//     then start.
//   - Added without a schedule: no orchestration action; the workflow is
//     available for on-demand invocation only.
//   - Removed: terminate.
//   - Updated: terminate the before identity; start the after definition if
//     it is scheduled, otherwise leave it stopped.
//
// Workflows have no cross-object dependencies, so each object converges on
// its own goroutine; the terminate-then-start pair for a single object runs
// in order on that goroutine. Failures are logged and never abort the
// remaining objects.
func ExecuteChanges(ctx context.Context, client Client, changes []infra.Change[infra.Workflow]) {
	if len(changes) == 0 {
		log.Info().Msg("no workflow changes to execute")
		return
	}

	log.Info().Int("count", len(changes)).Msg("executing workflow changes")

	var wg sync.WaitGroup
	for _, change := range changes {
		wg.Add(1)
		go func(c infra.Change[infra.Workflow]) {
			defer wg.Done()
			applyWorkflowChange(ctx, client, c)
		}(change)
	}
	wg.Wait()
}

func applyWorkflowChange(ctx context.Context, client Client, c infra.Change[infra.Workflow]) {
	switch c.Kind {
	case infra.ChangeAdded:
		workflow := *c.After
		if !workflow.Scheduled() {
			log.Info().Str("workflow", workflow.Name).
				Msg("workflow has no schedule, available for manual trigger only")
			return
		}
		terminate(ctx, client, workflow.Name)
		start(ctx, client, workflow)

	case infra.ChangeRemoved:
		terminate(ctx, client, c.Before.Name)

	case infra.ChangeUpdated:
		terminate(ctx, client, c.Before.Name)
		after := *c.After
		if after.Scheduled() {
			start(ctx, client, after)
		} else {
			log.Info().Str("workflow", after.Name).
				Msg("workflow schedule removed, workflow stopped")
		}
	}
}

func terminate(ctx context.Context, client Client, name string) {
	if _, err := client.Terminate(ctx, name); err != nil {
		// May not be running or on a schedule.
		log.Debug().Err(err).Str("workflow", name).Msg("could not terminate workflow")
		return
	}
	log.Info().Str("workflow", name).Msg("terminated workflow")
}

func start(ctx context.Context, client Client, workflow infra.Workflow) {
	info, err := client.Start(ctx, workflow)
	if err != nil {
		log.Error().Err(err).
			Str("workflow", workflow.Name).
			Str("schedule", workflow.Schedule).
			Msg("failed to start workflow")
		return
	}
	log.Info().
		Str("workflow", workflow.Name).
		Str("schedule", workflow.Schedule).
		Str("run_id", info.RunID).
		Msg("started workflow")
}
