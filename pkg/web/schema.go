package web

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const triggerEventSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["event", "subject"],
  "properties": {
    "event": {"type": "string", "minLength": 1},
    "subject": {"$ref": "#/definitions/reference"},
    "context": {
      "type": "object",
      "propertyNames": {
        "enum": ["incase", "client", "webform", "variant", "product", "user", "variants", "incases", "automation_message"]
      },
      "additionalProperties": {"$ref": "#/definitions/reference"}
    }
  },
  "definitions": {
    "reference": {
      "type": "object",
      "required": ["type", "id"],
      "properties": {
        "type": {
          "type": "string",
          "enum": ["incase", "client", "webform", "variant", "product", "user", "automation_message"]
        },
        "id": {"type": "string", "minLength": 1}
      }
    }
  }
}`

var triggerEventSchemaLoader = gojsonschema.NewStringLoader(triggerEventSchema)

// validateJSONSchema checks the raw request body before it is bound.
func validateJSONSchema(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
