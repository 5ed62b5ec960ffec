// Package config loads project configuration from stackplane.toml, found by
// walking up from the working directory, with a dotenv overlay for
// environment-specific values.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/stackplane/stackplane/internal/ddl"
)

// ConfigFile is the project configuration filename.
const ConfigFile = "stackplane.toml"

// OlapConfig configures the analytical store.
type OlapConfig struct {
	Database string `toml:"database"`
	URL      string `toml:"url"`
}

// StreamingConfig configures the streaming engine.
type StreamingConfig struct {
	MaxMessageBytes int `toml:"max_message_bytes"`
}

// OrchestrationConfig configures the workflow orchestrator.
type OrchestrationConfig struct {
	Endpoint string `toml:"endpoint"`
}

// WebAppConfig configures the web app runtime.
type WebAppConfig struct {
	Endpoint string `toml:"endpoint"`
}

// MigrationConfig configures plan generation.
type MigrationConfig struct {
	PlanPath         string   `toml:"plan_path"`
	IgnoreOperations []string `toml:"ignore_operations"`
}

// Project is the full project configuration.
type Project struct {
	SnapshotPath  string              `toml:"snapshot_path"`
	Production    bool                `toml:"production"`
	Olap          OlapConfig          `toml:"olap"`
	Streaming     StreamingConfig     `toml:"streaming"`
	Orchestration OrchestrationConfig `toml:"orchestration"`
	WebApps       WebAppConfig        `toml:"web_apps"`
	Migration     MigrationConfig     `toml:"migration"`

	ConfigFilePath string `toml:"-"`
}

// Load finds and parses the project configuration. A missing config file is
// not an error; defaults apply.
func Load() (*Project, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadFrom(startDir)
}

// LoadFrom walks up from dir looking for stackplane.toml, stopping at a
// project boundary or the filesystem root.
func LoadFrom(dir string) (*Project, error) {
	for {
		configPath := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return loadFile(configPath)
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return withDefaults(&Project{}), nil
}

func loadFile(configPath string) (*Project, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var project Project
	if err := toml.Unmarshal(data, &project); err != nil {
		return nil, err
	}
	project.ConfigFilePath = configPath

	// A .env next to the config supplies secrets without committing them.
	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))
	applyEnvOverrides(&project)

	return withDefaults(&project), nil
}

func applyEnvOverrides(p *Project) {
	if v := os.Getenv("STACKPLANE_OLAP_URL"); v != "" {
		p.Olap.URL = v
	}
	if v := os.Getenv("STACKPLANE_OLAP_DATABASE"); v != "" {
		p.Olap.Database = v
	}
	if v := os.Getenv("STACKPLANE_ORCHESTRATION_ENDPOINT"); v != "" {
		p.Orchestration.Endpoint = v
	}
	if v := os.Getenv("STACKPLANE_WEB_APPS_ENDPOINT"); v != "" {
		p.WebApps.Endpoint = v
	}
}

func withDefaults(p *Project) *Project {
	if p.Olap.Database == "" {
		p.Olap.Database = "local"
	}
	if p.SnapshotPath == "" {
		p.SnapshotPath = "infrastructure.json"
	}
	if p.Migration.PlanPath == "" {
		p.Migration.PlanPath = filepath.Join("migrations", "plan.yaml")
	}
	return p
}

// IgnoredOperations parses the configured ignore list. Unknown names are
// returned separately so the caller can report them.
func (p *Project) IgnoredOperations() ([]ddl.IgnorableOperation, []string) {
	var ops []ddl.IgnorableOperation
	var unknown []string
	for _, name := range p.Migration.IgnoreOperations {
		op, ok := ddl.ParseIgnorableOperation(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		ops = append(ops, op)
	}
	return ops, unknown
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}
