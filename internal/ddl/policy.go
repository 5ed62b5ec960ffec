package ddl

import (
	"slices"

	"github.com/stackplane/stackplane/infra"
)

// RecreatePolicy decides whether an updated table can be altered in place or
// must be dropped and recreated. The decision is made before the dependency
// graph is built, since it determines whether an update contributes nodes to
// the teardown graph, the setup graph, or both.
type RecreatePolicy interface {
	RequiresRecreate(before, after infra.Table) bool
}

// StructuralPolicy is the default rule table: changing an immutable structural
// property (engine, ORDER BY, PARTITION BY) forces teardown+recreate; column,
// index, TTL and settings changes alter in place.
type StructuralPolicy struct{}

func (StructuralPolicy) RequiresRecreate(before, after infra.Table) bool {
	if before.Engine != after.Engine {
		return true
	}
	if !slices.Equal(before.OrderBy, after.OrderBy) {
		return true
	}
	if before.PartitionBy != after.PartitionBy {
		return true
	}
	return false
}
