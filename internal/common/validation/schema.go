// Package validation checks planner output against the dashboard plan
// schema before anything downstream trusts it.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// planSchema describes the shape a planner reply must have. Everything
// beyond these fields is tolerated and carried through untouched.
var planSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"intent", "assistantMessage"},
	"properties": map[string]interface{}{
		"intent": map[string]interface{}{
			"type": "string",
		},
		"assistantMessage": map[string]interface{}{
			"type": "string",
		},
		"sqlQueries": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "string",
			},
		},
		"dashboardSpec": map[string]interface{}{
			"type": "object",
		},
	},
}

// ValidatePlan validates a decoded planner reply against the plan schema.
func ValidatePlan(data map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(planSchema)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("plan validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("plan validation failed: %v", errs)
	}

	return nil
}
