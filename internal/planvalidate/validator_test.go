package planvalidate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/stream"
)

func TestValidateCleanChanges(t *testing.T) {
	t.Parallel()

	changes := &infra.Changes{
		Olap: []infra.OlapChange{
			infra.TableChanged(infra.Added(infra.Table{
				Name:    "events",
				Columns: []infra.Column{{Name: "id", Type: "String"}},
			})),
		},
		Streaming: []infra.Change[infra.Topic]{
			infra.Added(infra.Topic{Name: "ingest", Partitions: 1}),
		},
	}

	if err := Validate(stream.EngineConfig{}, changes); err != nil {
		t.Fatalf("Expected valid changes, got %v", err)
	}
}

func TestValidateStreamingFailureAborts(t *testing.T) {
	t.Parallel()

	changes := &infra.Changes{
		Streaming: []infra.Change[infra.Topic]{
			infra.Added(infra.Topic{Name: "ingest", Partitions: 0}),
		},
	}

	err := Validate(stream.EngineConfig{}, changes)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}

	// The underlying streaming error stays reachable.
	var cerr *stream.ChangesError
	if !errors.As(err, &cerr) {
		t.Error("Expected the streaming error in the chain")
	}
}

func TestValidatePseudoChangeAborts(t *testing.T) {
	t.Parallel()

	changes := &infra.Changes{
		Olap: []infra.OlapChange{
			infra.TableChanged(infra.Added(infra.Table{
				Name:    "fine",
				Columns: []infra.Column{{Name: "id", Type: "String"}},
			})),
			infra.InvalidObject("bad_view", "setup statement failed to parse"),
		},
	}

	err := Validate(stream.EngineConfig{}, changes)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Object != "bad_view" {
		t.Errorf("Expected the offending object name, got %q", verr.Object)
	}
	if !strings.Contains(verr.Error(), "bad_view") {
		t.Errorf("Error text should name the object, got %q", verr.Error())
	}
}
