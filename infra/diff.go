package infra

// Diff compares an observed snapshot against a desired snapshot and produces
// the per-domain change lists. It is a pure function of its two inputs: an
// object present only in desired is Added, only in observed is Removed,
// present in both with differing content is Updated, and identical content
// produces no entry at all. Iteration is in sorted-name order so repeated
// runs yield identical change lists.
func Diff(observed, desired *Map) *Changes {
	changes := &Changes{}

	for _, c := range diffDomain(observed.Tables, desired.Tables, Table.Equal) {
		changes.Olap = append(changes.Olap, TableChanged(c))
	}
	for _, c := range diffDomain(observed.SQLResources, desired.SQLResources, SQLResource.Equal) {
		changes.Olap = append(changes.Olap, SQLResourceChanged(c))
	}

	changes.Streaming = diffDomain(observed.Topics, desired.Topics, Topic.Equal)
	changes.Workflows = diffDomain(observed.Workflows, desired.Workflows, Workflow.Equal)
	changes.WebApps = diffDomain(observed.WebApps, desired.WebApps, WebApp.Equal)

	return changes
}

// diffDomain sweeps one domain's name-keyed maps. Additions and updates come
// first in target order, then removals in current order, both sorted by name.
func diffDomain[T any](current, target map[string]T, equal func(a, b T) bool) []Change[T] {
	var out []Change[T]

	for _, name := range sortedKeys(target) {
		targetObj := target[name]
		currentObj, exists := current[name]
		if !exists {
			out = append(out, Added(targetObj))
			continue
		}
		if !equal(currentObj, targetObj) {
			out = append(out, Updated(currentObj, targetObj))
		}
	}

	for _, name := range sortedKeys(current) {
		if _, exists := target[name]; !exists {
			out = append(out, Removed(current[name]))
		}
	}

	return out
}
