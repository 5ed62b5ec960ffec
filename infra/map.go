package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Map is an immutable snapshot of all infrastructure objects a deployment
// should contain, keyed by stable object name per domain.
type Map struct {
	DefaultDatabase string                 `json:"default_database,omitempty"`
	Tables          map[string]Table       `json:"tables,omitempty"`
	SQLResources    map[string]SQLResource `json:"sql_resources,omitempty"`
	Topics          map[string]Topic       `json:"topics,omitempty"`
	Workflows       map[string]Workflow    `json:"workflows,omitempty"`
	WebApps         map[string]WebApp      `json:"web_apps,omitempty"`
}

// NewMap returns an empty snapshot for the given default database.
func NewMap(defaultDatabase string) *Map {
	return &Map{
		DefaultDatabase: defaultDatabase,
		Tables:          map[string]Table{},
		SQLResources:    map[string]SQLResource{},
		Topics:          map[string]Topic{},
		Workflows:       map[string]Workflow{},
		WebApps:         map[string]WebApp{},
	}
}

// LoadMap reads a snapshot document produced by the compiler/loader.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return ParseMap(data)
}

// ParseMap decodes a snapshot document.
func ParseMap(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if m.Tables == nil {
		m.Tables = map[string]Table{}
	}
	if m.SQLResources == nil {
		m.SQLResources = map[string]SQLResource{}
	}
	if m.Topics == nil {
		m.Topics = map[string]Topic{}
	}
	if m.Workflows == nil {
		m.Workflows = map[string]Workflow{}
	}
	if m.WebApps == nil {
		m.WebApps = map[string]WebApp{}
	}
	return &m, nil
}

// MarshalDocument renders the snapshot as an indented JSON document.
func (m *Map) MarshalDocument() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
