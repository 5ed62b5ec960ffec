package infra

// ChangeKind classifies a desired-vs-observed difference for one object.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeUpdated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Change is a tagged union over an object type T. Before is set for Removed
// and Updated, After for Added and Updated. Updated is only produced when
// identity matches and content differs.
type Change[T any] struct {
	Kind   ChangeKind
	Before *T
	After  *T
}

// Added constructs an addition.
func Added[T any](v T) Change[T] {
	return Change[T]{Kind: ChangeAdded, After: &v}
}

// Removed constructs a removal.
func Removed[T any](v T) Change[T] {
	return Change[T]{Kind: ChangeRemoved, Before: &v}
}

// Updated constructs an in-place difference with matching identity.
func Updated[T any](before, after T) Change[T] {
	return Change[T]{Kind: ChangeUpdated, Before: &before, After: &after}
}

// ValidationIssue is a non-actionable pseudo-change: it surfaces a structural
// error in an object definition through the same channel as real changes and
// is never executed.
type ValidationIssue struct {
	Name    string
	Message string
}

// OlapChange is a closed union over the OLAP domain. Exactly one field is
// non-nil.
type OlapChange struct {
	Table       *Change[Table]
	SQLResource *Change[SQLResource]
	Invalid     *ValidationIssue
}

// TableChanged wraps a table change.
func TableChanged(c Change[Table]) OlapChange {
	return OlapChange{Table: &c}
}

// SQLResourceChanged wraps a SQL resource change.
func SQLResourceChanged(c Change[SQLResource]) OlapChange {
	return OlapChange{SQLResource: &c}
}

// InvalidObject wraps a validation pseudo-change.
func InvalidObject(name, message string) OlapChange {
	return OlapChange{Invalid: &ValidationIssue{Name: name, Message: message}}
}

// Changes aggregates the per-domain change lists for one reconciliation pass.
// It is constructed once by Diff and immutable thereafter.
type Changes struct {
	Olap      []OlapChange
	Streaming []Change[Topic]
	Workflows []Change[Workflow]
	WebApps   []Change[WebApp]
}

// Empty reports whether no domain carries any change.
func (c *Changes) Empty() bool {
	return len(c.Olap) == 0 && len(c.Streaming) == 0 &&
		len(c.Workflows) == 0 && len(c.WebApps) == 0
}
