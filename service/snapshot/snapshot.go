// Package snapshot validates uploaded configuration and metrics payloads
// before they are persisted as DBConf and DBMSMetrics rows.
package snapshot

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// dbConfSchema describes a knob snapshot upload: a flat object mapping knob
// names to scalar values.
const dbConfSchema = `{
	"type": "object",
	"minProperties": 1,
	"additionalProperties": {
		"type": ["string", "number", "boolean"]
	}
}`

// dbmsMetricsSchema describes a metrics snapshot upload: metric values plus
// the execution time the counters were collected over.
const dbmsMetricsSchema = `{
	"type": "object",
	"required": ["execution_time", "metrics"],
	"properties": {
		"execution_time": {
			"type": "integer",
			"minimum": 1
		},
		"metrics": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": ["string", "number", "boolean"]
			}
		}
	},
	"additionalProperties": false
}`

// Validator checks upload payloads against their JSON schemas.
type Validator struct {
	dbConf      *gojsonschema.Schema
	dbmsMetrics *gojsonschema.Schema
}

// NewValidator compiles the upload schemas.
func NewValidator() (*Validator, error) {
	dbConf, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(dbConfSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile db conf schema: %w", err)
	}

	dbmsMetrics, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(dbmsMetricsSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile dbms metrics schema: %w", err)
	}

	return &Validator{dbConf: dbConf, dbmsMetrics: dbmsMetrics}, nil
}

// ValidateDBConf checks a knob snapshot payload.
func (v *Validator) ValidateDBConf(payload []byte) error {
	return validate(v.dbConf, payload, "db conf")
}

// ValidateDBMSMetrics checks a metrics snapshot payload.
func (v *Validator) ValidateDBMSMetrics(payload []byte) error {
	return validate(v.dbmsMetrics, payload, "dbms metrics")
}

func validate(schema *gojsonschema.Schema, payload []byte, kind string) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("invalid %s payload: %w", kind, err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("invalid %s payload: %s", kind, strings.Join(problems, "; "))
}
