package infra

// WebApp describes a web application mounted by the runtime.
type WebApp struct {
	Name        string `json:"name"`
	MountPath   string `json:"mount_path"`
	Description string `json:"description,omitempty"`
}

// Equal reports structural equality.
func (a WebApp) Equal(o WebApp) bool {
	return a == o
}
