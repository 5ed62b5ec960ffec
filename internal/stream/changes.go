// Package stream holds the streaming-engine side of a planning pass: the
// typed topic changes and the structural-validity check the plan validator
// delegates to.
package stream

import (
	"fmt"
	"strings"

	"github.com/stackplane/stackplane/infra"
)

// EngineConfig is the slice of project configuration the validity rules need.
type EngineConfig struct {
	// MaxMessageBytes is the broker-side ceiling; a topic asking for more is
	// illegal under the current configuration. Zero means no ceiling.
	MaxMessageBytes int
}

// InvalidChange names one illegal topic change and the reason it is illegal.
type InvalidChange struct {
	Topic  string
	Reason string
}

// ChangesError lists every invalid streaming change found in a pass.
type ChangesError struct {
	Invalid []InvalidChange
}

func (e *ChangesError) Error() string {
	msgs := make([]string, 0, len(e.Invalid))
	for _, inv := range e.Invalid {
		msgs = append(msgs, fmt.Sprintf("%s: %s", inv.Topic, inv.Reason))
	}
	return "invalid streaming changes: " + strings.Join(msgs, "; ")
}

// ValidateChanges checks every topic change for structural validity given the
// current engine configuration. All changes are checked before reporting so
// the error lists the full set of offenders.
func ValidateChanges(cfg EngineConfig, changes []infra.Change[infra.Topic]) error {
	var invalid []InvalidChange

	for _, change := range changes {
		switch change.Kind {
		case infra.ChangeAdded:
			if issue := checkTopic(cfg, *change.After); issue != "" {
				invalid = append(invalid, InvalidChange{Topic: change.After.Name, Reason: issue})
			}
		case infra.ChangeUpdated:
			before, after := *change.Before, *change.After
			if after.Partitions < before.Partitions {
				invalid = append(invalid, InvalidChange{
					Topic: after.Name,
					Reason: fmt.Sprintf("partition count cannot shrink (%d -> %d)",
						before.Partitions, after.Partitions),
				})
			}
			if before.ReplicationFactor != after.ReplicationFactor {
				invalid = append(invalid, InvalidChange{
					Topic:  after.Name,
					Reason: "replication factor cannot be changed on an existing topic",
				})
			}
			if issue := checkTopic(cfg, after); issue != "" {
				invalid = append(invalid, InvalidChange{Topic: after.Name, Reason: issue})
			}
		case infra.ChangeRemoved:
			// Always legal.
		}
	}

	if len(invalid) > 0 {
		return &ChangesError{Invalid: invalid}
	}
	return nil
}

func checkTopic(cfg EngineConfig, t infra.Topic) string {
	if t.Partitions < 1 {
		return "partition count must be at least 1"
	}
	if cfg.MaxMessageBytes > 0 && t.MaxMessageBytes > cfg.MaxMessageBytes {
		return fmt.Sprintf("max message bytes %d exceeds the configured broker limit %d",
			t.MaxMessageBytes, cfg.MaxMessageBytes)
	}
	return ""
}
