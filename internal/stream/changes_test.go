package stream

import (
	"errors"
	"strings"
	"testing"

	"github.com/stackplane/stackplane/infra"
)

func TestValidateChangesLegalChanges(t *testing.T) {
	t.Parallel()

	changes := []infra.Change[infra.Topic]{
		infra.Added(infra.Topic{Name: "ingest", Partitions: 3, ReplicationFactor: 1}),
		infra.Updated(
			infra.Topic{Name: "clicks", Partitions: 3, ReplicationFactor: 1},
			infra.Topic{Name: "clicks", Partitions: 6, ReplicationFactor: 1},
		),
		infra.Removed(infra.Topic{Name: "stale", Partitions: 1}),
	}

	if err := ValidateChanges(EngineConfig{}, changes); err != nil {
		t.Fatalf("Expected legal changes, got %v", err)
	}
}

func TestValidateChangesPartitionShrink(t *testing.T) {
	t.Parallel()

	changes := []infra.Change[infra.Topic]{
		infra.Updated(
			infra.Topic{Name: "clicks", Partitions: 6},
			infra.Topic{Name: "clicks", Partitions: 3},
		),
	}

	err := ValidateChanges(EngineConfig{}, changes)
	var cerr *ChangesError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected ChangesError, got %v", err)
	}
	if len(cerr.Invalid) != 1 || !strings.Contains(cerr.Invalid[0].Reason, "shrink") {
		t.Errorf("Expected a shrink violation, got %+v", cerr.Invalid)
	}
}

func TestValidateChangesReplicationFactorChange(t *testing.T) {
	t.Parallel()

	changes := []infra.Change[infra.Topic]{
		infra.Updated(
			infra.Topic{Name: "clicks", Partitions: 3, ReplicationFactor: 1},
			infra.Topic{Name: "clicks", Partitions: 3, ReplicationFactor: 3},
		),
	}

	err := ValidateChanges(EngineConfig{}, changes)
	var cerr *ChangesError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected ChangesError, got %v", err)
	}
	if !strings.Contains(cerr.Invalid[0].Reason, "replication factor") {
		t.Errorf("Expected a replication factor violation, got %+v", cerr.Invalid)
	}
}

func TestValidateChangesCollectsAllOffenders(t *testing.T) {
	t.Parallel()

	changes := []infra.Change[infra.Topic]{
		infra.Added(infra.Topic{Name: "zero", Partitions: 0}),
		infra.Added(infra.Topic{Name: "huge", Partitions: 1, MaxMessageBytes: 10 << 20}),
	}

	err := ValidateChanges(EngineConfig{MaxMessageBytes: 1 << 20}, changes)
	var cerr *ChangesError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected ChangesError, got %v", err)
	}
	if len(cerr.Invalid) != 2 {
		t.Fatalf("Expected both offenders reported, got %+v", cerr.Invalid)
	}
	if cerr.Invalid[0].Topic != "zero" || cerr.Invalid[1].Topic != "huge" {
		t.Errorf("Unexpected offender order: %+v", cerr.Invalid)
	}
}

func TestValidateChangesRemovalAlwaysLegal(t *testing.T) {
	t.Parallel()

	// Even a structurally invalid definition can be removed.
	changes := []infra.Change[infra.Topic]{
		infra.Removed(infra.Topic{Name: "broken", Partitions: 0}),
	}
	if err := ValidateChanges(EngineConfig{MaxMessageBytes: 1}, changes); err != nil {
		t.Fatalf("Removal must always be legal, got %v", err)
	}
}
