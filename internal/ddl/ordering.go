package ddl

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strings"

	"github.com/stackplane/stackplane/infra"
)

// PlanOrderingError reports that a set of OLAP changes cannot be sequenced
// safely: a dependency cycle, a malformed or unresolvable change, or a
// validation pseudo-change that reached the orderer. No partial order is ever
// returned alongside it.
type PlanOrderingError struct {
	Reason string
	Cycle  []string
}

func (e *PlanOrderingError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("cannot order OLAP changes: %s: %s", e.Reason, strings.Join(e.Cycle, ", "))
	}
	return "cannot order OLAP changes: " + e.Reason
}

// node is one object in a dependency graph. Edges are name references into
// the same graph; references to objects outside the change set are assumed to
// exist already and contribute no edge.
type node struct {
	id   string
	deps []string
	ops  []Operation
}

type graph map[string]*node

func (g graph) add(id string, deps []string, ops ...Operation) {
	if existing, ok := g[id]; ok {
		existing.deps = append(existing.deps, deps...)
		existing.ops = append(existing.ops, ops...)
		return
	}
	g[id] = &node{id: id, deps: deps, ops: ops}
}

// OrderChanges turns an unordered set of OLAP changes into two ordered
// operation sequences: a teardown sequence (dependents before the objects
// they depend on) and a setup sequence (dependencies before dependents).
// Executing teardown-then-setup never violates a referential or definitional
// dependency. Ordering among independent objects is a stable sort by
// qualified object name, so identical inputs produce byte-identical plans.
func OrderChanges(changes []infra.OlapChange, defaultDatabase string) (teardown, setup []Operation, err error) {
	return OrderChangesWithPolicy(changes, defaultDatabase, StructuralPolicy{})
}

// OrderChangesWithPolicy is OrderChanges with an explicit recreate policy.
func OrderChangesWithPolicy(changes []infra.OlapChange, defaultDatabase string, policy RecreatePolicy) (teardown, setup []Operation, err error) {
	// Pre-change graph drives teardown; post-change graph drives setup. Both
	// are built fresh per call.
	teardownGraph := graph{}
	setupGraph := graph{}

	for _, change := range changes {
		switch {
		case change.Invalid != nil:
			return nil, nil, &PlanOrderingError{
				Reason: fmt.Sprintf("validation error for %q reached the orderer: %s",
					change.Invalid.Name, change.Invalid.Message),
			}

		case change.Table != nil:
			if err := addTableChange(teardownGraph, setupGraph, *change.Table, defaultDatabase, policy); err != nil {
				return nil, nil, err
			}

		case change.SQLResource != nil:
			if err := addResourceChange(teardownGraph, setupGraph, *change.SQLResource, defaultDatabase); err != nil {
				return nil, nil, err
			}

		default:
			return nil, nil, &PlanOrderingError{Reason: "empty OLAP change"}
		}
	}

	teardownOrder, oerr := topoSort(teardownGraph)
	if oerr != nil {
		return nil, nil, oerr
	}
	setupOrder, oerr := topoSort(setupGraph)
	if oerr != nil {
		return nil, nil, oerr
	}

	// Teardown runs in reverse topological order: views come down before the
	// tables they read from or write to.
	for i := len(teardownOrder) - 1; i >= 0; i-- {
		teardown = append(teardown, teardownGraph[teardownOrder[i]].ops...)
	}
	for _, id := range setupOrder {
		setup = append(setup, setupGraph[id].ops...)
	}
	return teardown, setup, nil
}

func addTableChange(teardownGraph, setupGraph graph, c infra.Change[infra.Table], defaultDatabase string, policy RecreatePolicy) error {
	switch c.Kind {
	case infra.ChangeAdded:
		if c.After == nil || c.After.Name == "" {
			return &PlanOrderingError{Reason: "added table change is missing its definition"}
		}
		setupGraph.add(c.After.QualifiedName(defaultDatabase), nil,
			Operation{CreateTable: &CreateTable{Table: *c.After}})

	case infra.ChangeRemoved:
		if c.Before == nil || c.Before.Name == "" {
			return &PlanOrderingError{Reason: "removed table change is missing its definition"}
		}
		teardownGraph.add(c.Before.QualifiedName(defaultDatabase), nil,
			Operation{DropTable: &DropTable{Table: c.Before.Name, Database: c.Before.Database}})

	case infra.ChangeUpdated:
		if c.Before == nil || c.After == nil || c.After.Name == "" {
			return &PlanOrderingError{Reason: "updated table change is missing a before or after definition"}
		}
		if policy.RequiresRecreate(*c.Before, *c.After) {
			teardownGraph.add(c.Before.QualifiedName(defaultDatabase), nil,
				Operation{DropTable: &DropTable{Table: c.Before.Name, Database: c.Before.Database}})
			setupGraph.add(c.After.QualifiedName(defaultDatabase), nil,
				Operation{CreateTable: &CreateTable{Table: *c.After}})
			return nil
		}
		setupGraph.add(c.After.QualifiedName(defaultDatabase), nil,
			alterTableOps(*c.Before, *c.After)...)
	}
	return nil
}

func addResourceChange(teardownGraph, setupGraph graph, c infra.Change[infra.SQLResource], defaultDatabase string) error {
	switch c.Kind {
	case infra.ChangeAdded:
		if c.After == nil || c.After.Name == "" {
			return &PlanOrderingError{Reason: "added SQL resource change is missing its definition"}
		}
		setupGraph.add(c.After.QualifiedName(defaultDatabase),
			resourceDeps(*c.After, defaultDatabase),
			resourceSetupOp(*c.After))

	case infra.ChangeRemoved:
		if c.Before == nil || c.Before.Name == "" {
			return &PlanOrderingError{Reason: "removed SQL resource change is missing its definition"}
		}
		teardownGraph.add(c.Before.QualifiedName(defaultDatabase),
			resourceDeps(*c.Before, defaultDatabase),
			resourceTeardownOp(*c.Before))

	case infra.ChangeUpdated:
		// A resource's definition is its identity: updates are always a
		// teardown of the before definition plus a setup of the after one.
		if c.Before == nil || c.After == nil || c.After.Name == "" {
			return &PlanOrderingError{Reason: "updated SQL resource change is missing a before or after definition"}
		}
		teardownGraph.add(c.Before.QualifiedName(defaultDatabase),
			resourceDeps(*c.Before, defaultDatabase),
			resourceTeardownOp(*c.Before))
		setupGraph.add(c.After.QualifiedName(defaultDatabase),
			resourceDeps(*c.After, defaultDatabase),
			resourceSetupOp(*c.After))
	}
	return nil
}

func resourceSetupOp(r infra.SQLResource) Operation {
	return Operation{RawSQL: &RawSQL{
		SQL:         r.Setup,
		Description: fmt.Sprintf("Creating SQL resource %q", r.Name),
	}}
}

func resourceTeardownOp(r infra.SQLResource) Operation {
	return Operation{RawSQL: &RawSQL{
		SQL:         r.Teardown,
		Description: fmt.Sprintf("Dropping SQL resource %q", r.Name),
	}}
}

// resourceDeps collects the qualified names of every object the resource
// pulls data from or pushes data to. Self references are dropped.
func resourceDeps(r infra.SQLResource, defaultDatabase string) []string {
	self := r.QualifiedName(defaultDatabase)
	seen := map[string]bool{}
	var deps []string
	for _, ref := range append(append([]infra.Reference{}, r.PullsDataFrom...), r.PushesDataTo...) {
		id := ref.QualifiedName(defaultDatabase)
		if id == self || seen[id] {
			continue
		}
		seen[id] = true
		deps = append(deps, id)
	}
	return deps
}

// alterTableOps computes the in-place operations for a table update that the
// recreate policy allowed: column adds (positioned), drops, modifications,
// then index, TTL and settings changes.
func alterTableOps(before, after infra.Table) []Operation {
	var ops []Operation

	beforeCols := make(map[string]infra.Column, len(before.Columns))
	for _, col := range before.Columns {
		beforeCols[col.Name] = col
	}

	afterNames := make(map[string]bool, len(after.Columns))
	prev := ""
	for _, col := range after.Columns {
		afterNames[col.Name] = true
		if existing, ok := beforeCols[col.Name]; !ok {
			ops = append(ops, Operation{AddTableColumn: &AddTableColumn{
				Table:       after.Name,
				Database:    after.Database,
				Column:      col,
				AfterColumn: prev,
			}})
		} else if !existing.Equal(col) {
			ops = append(ops, Operation{ModifyTableColumn: &ModifyTableColumn{
				Table:        after.Name,
				Database:     after.Database,
				BeforeColumn: existing,
				AfterColumn:  col,
			}})
		}
		prev = col.Name
	}
	for _, col := range before.Columns {
		if !afterNames[col.Name] {
			ops = append(ops, Operation{DropTableColumn: &DropTableColumn{
				Table:      after.Name,
				Database:   after.Database,
				ColumnName: col.Name,
			}})
		}
	}

	beforeIdx := make(map[string]infra.TableIndex, len(before.Indexes))
	for _, idx := range before.Indexes {
		beforeIdx[idx.Name] = idx
	}
	afterIdx := make(map[string]bool, len(after.Indexes))
	for _, idx := range after.Indexes {
		afterIdx[idx.Name] = true
		existing, ok := beforeIdx[idx.Name]
		if ok && reflect.DeepEqual(existing, idx) {
			continue
		}
		if ok {
			ops = append(ops, Operation{DropTableIndex: &DropTableIndex{
				Table: after.Name, Database: after.Database, IndexName: idx.Name,
			}})
		}
		ops = append(ops, Operation{AddTableIndex: &AddTableIndex{
			Table: after.Name, Database: after.Database, Index: idx,
		}})
	}
	for _, idx := range before.Indexes {
		if !afterIdx[idx.Name] {
			ops = append(ops, Operation{DropTableIndex: &DropTableIndex{
				Table: after.Name, Database: after.Database, IndexName: idx.Name,
			}})
		}
	}

	if before.TTL != after.TTL {
		ops = append(ops, Operation{ModifyTableTTL: &ModifyTableTTL{
			Table: after.Name, Database: after.Database, Before: before.TTL, After: after.TTL,
		}})
	}
	if !maps.Equal(before.Settings, after.Settings) {
		ops = append(ops, Operation{ModifyTableSettings: &ModifyTableSettings{
			Table: after.Name, Database: after.Database,
			BeforeSettings: before.Settings, AfterSettings: after.Settings,
		}})
	}

	return ops
}

// topoSort runs Kahn's algorithm over the graph with deterministic
// lexicographic tie-breaking among ready nodes. Returns the node ids with
// every dependency ordered before its dependents, or a PlanOrderingError
// naming the nodes left on a cycle.
func topoSort(g graph) ([]string, *PlanOrderingError) {
	indegree := make(map[string]int, len(g))
	dependents := make(map[string][]string, len(g))

	for id, n := range g {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		seen := map[string]bool{}
		for _, dep := range n.deps {
			if _, inGraph := g[dep]; !inGraph || seen[dep] {
				continue
			}
			seen[dep] = true
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := dependents[id]
		sort.Strings(released)
		for _, dep := range released {
			indegree[dep]--
			if indegree[dep] == 0 {
				i := sort.SearchStrings(ready, dep)
				ready = append(ready[:i], append([]string{dep}, ready[i:]...)...)
			}
		}
	}

	if len(order) < len(g) {
		var remaining []string
		for id := range g {
			if indegree[id] > 0 {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, &PlanOrderingError{Reason: "dependency cycle detected", Cycle: remaining}
	}
	return order, nil
}
