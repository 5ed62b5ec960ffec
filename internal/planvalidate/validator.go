// Package planvalidate is the pre-execution gate: it rejects a planning pass
// whose changes failed structural validation, before any plan is built or
// applied.
package planvalidate

import (
	"fmt"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/stream"
)

// ValidationError is fatal to the current planning pass. It carries enough
// context (offending object, reason) to fix the source definition.
type ValidationError struct {
	Object  string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("validation failed for %q: %s", e.Object, e.Message)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate runs both independent checks: the streaming engine's own
// structural-validity check over the streaming changes, and a scan of the
// OLAP changes for validation pseudo-changes. Either failure aborts the
// planning pass; no partial plan is produced.
func Validate(cfg stream.EngineConfig, changes *infra.Changes) error {
	if err := stream.ValidateChanges(cfg, changes.Streaming); err != nil {
		return &ValidationError{Message: err.Error(), Err: err}
	}

	for _, change := range changes.Olap {
		if change.Invalid != nil {
			return &ValidationError{
				Object:  change.Invalid.Name,
				Message: change.Invalid.Message,
			}
		}
	}

	return nil
}
