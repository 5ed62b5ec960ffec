package migration

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// migrationPlanSchema is the JSON Schema every persisted plan document must
// satisfy before it is executed.
//
//go:embed migration_plan_schema.json
var migrationPlanSchema string

// ValidatePlanDocument checks a plan document (as JSON) against the embedded
// schema. The returned error lists every violation.
func ValidatePlanDocument(doc []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(migrationPlanSchema)
	docLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("failed to validate plan document: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, issue := range result.Errors() {
			msgs = append(msgs, issue.String())
		}
		return fmt.Errorf("plan document is invalid:\n  %s", strings.Join(msgs, "\n  "))
	}
	return nil
}

// LoadPlan reads a persisted plan file, validates it against the schema and
// decodes it. The YAML document is routed through the same JSON intermediate
// used when writing.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan validates and decodes a plan document.
func ParsePlan(data []byte) (*Plan, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse plan document: %w", err)
	}

	jsonDoc, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize plan document: %w", err)
	}

	if err := ValidatePlanDocument(jsonDoc); err != nil {
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal(jsonDoc, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan document: %w", err)
	}
	return &plan, nil
}
