package infra

// Workflow describes a background workflow registered with the orchestrator.
// A workflow without a schedule is available for on-demand invocation only.
type Workflow struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
	Retries  int    `json:"retries,omitempty"`
}

// Scheduled reports whether the workflow runs on a schedule.
func (w Workflow) Scheduled() bool {
	return w.Schedule != ""
}

// Equal reports structural equality.
func (w Workflow) Equal(o Workflow) bool {
	return w == o
}
