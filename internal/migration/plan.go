package migration

import (
	"fmt"
	"os"
	"time"

	"github.com/stackplane/stackplane/infra"
	"github.com/stackplane/stackplane/internal/ddl"
)

// Plan is the persisted, reviewable migration artifact: a creation timestamp
// plus the fully ordered operation sequence. Operations are exactly the
// teardown sequence followed by the setup sequence.
type Plan struct {
	CreatedAt  time.Time       `json:"created_at"`
	Operations []ddl.Operation `json:"operations"`
}

// FromChanges invokes the dependency orderer over the OLAP changes and wraps
// the ordered operations into a plan stamped with the current time. On any
// ordering failure no partial plan is returned.
func FromChanges(changes *infra.Changes, defaultDatabase string) (*Plan, error) {
	teardown, setup, err := ddl.OrderChanges(changes.Olap, defaultDatabase)
	if err != nil {
		return nil, err
	}

	operations := make([]ddl.Operation, 0, len(teardown)+len(setup))
	operations = append(operations, teardown...)
	operations = append(operations, setup...)

	return &Plan{
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		Operations: operations,
	}, nil
}

// TotalOperations returns the number of operations in the plan.
func (p *Plan) TotalOperations() int {
	return len(p.Operations)
}

// FilterIgnored removes operations of the ignored kinds. Runs after ordering;
// removing an ignorable operation never invalidates the remaining order.
func (p *Plan) FilterIgnored(ignore []ddl.IgnorableOperation) {
	if len(ignore) == 0 {
		return
	}
	kept := p.Operations[:0]
	for _, op := range p.Operations {
		ignored := false
		for _, ig := range ignore {
			if ig.Matches(op) {
				ignored = true
				break
			}
		}
		if !ignored {
			kept = append(kept, op)
		}
	}
	p.Operations = kept
}

// ToYAML serializes the plan deterministically: the plan is flattened through
// a structured intermediate value and every mapping is emitted with its keys
// in sorted order, so identical plans are byte-identical and committed plan
// files produce minimal diffs.
func (p *Plan) ToYAML() ([]byte, error) {
	data, err := MarshalDeterministic(p)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize migration plan: %w", err)
	}
	return data, nil
}

// WriteFile persists the plan document to disk.
func (p *Plan) WriteFile(path string) error {
	data, err := p.ToYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// PlanBundle keeps the observed and desired snapshots that produced a plan,
// so a later apply step can detect drift before executing stale operations.
// The three fields are mutually consistent at construction time; whether to
// act on detected drift is the caller's decision.
type PlanBundle struct {
	RemoteState   *infra.Map
	LocalInfraMap *infra.Map
	DBMigration   *Plan
}

// NewPlanBundle diffs the two snapshots and builds the plan from the result,
// guaranteeing the bundle's consistency.
func NewPlanBundle(remote, local *infra.Map) (*PlanBundle, error) {
	changes := infra.Diff(remote, local)
	plan, err := FromChanges(changes, local.DefaultDatabase)
	if err != nil {
		return nil, err
	}
	return &PlanBundle{
		RemoteState:   remote,
		LocalInfraMap: local,
		DBMigration:   plan,
	}, nil
}

// RemoteDrifted reports whether the remote state changed since the bundle was
// constructed, by comparing snapshot hashes.
func (b *PlanBundle) RemoteDrifted(current *infra.Map) (bool, error) {
	planned, err := infra.ComputeMapHash(b.RemoteState)
	if err != nil {
		return false, err
	}
	actual, err := infra.ComputeMapHash(current)
	if err != nil {
		return false, err
	}
	return planned != actual, nil
}
