package snapshot

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// networkSchema validates the notifier's resources payload before decoding.
// Any shape drift in the provider surfaces as a SchemaViolationError with the
// offending fields rather than a zero-valued struct.
const networkSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["user", "resources", "internet_security", "admin_url", "full_tunnel_time_limit"],
  "properties": {
    "admin_url": {"type": "string"},
    "full_tunnel_time_limit": {"type": "integer", "minimum": 0},
    "internet_security": {
      "type": "object",
      "required": ["mode", "status"],
      "properties": {
        "mode": {"type": "integer"},
        "status": {"type": "integer"}
      }
    },
    "user": {
      "type": "object",
      "required": ["id", "email"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "email": {"type": "string", "minLength": 1},
        "first_name": {"type": "string"},
        "last_name": {"type": "string"},
        "is_admin": {"type": "boolean"},
        "avatar_url": {"type": "string"}
      }
    },
    "resources": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "address", "auth_expires_at", "can_open_in_browser", "client_visibility"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "address": {"type": "string"},
          "admin_url": {"type": "string"},
          "alias": {"type": ["string", "null"]},
          "aliases": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "address": {"type": "string"},
                "open_url": {"type": "string"}
              }
            }
          },
          "auth_expires_at": {"type": "integer"},
          "auth_flow_id": {"type": "string"},
          "auth_state": {"type": "string"},
          "can_open_in_browser": {"type": "boolean"},
          "client_visibility": {"type": "integer"},
          "open_url": {"type": "string"},
          "type": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://twintray.local/network.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(networkSchema)); err != nil {
		panic(fmt.Sprintf("load network schema: %v", err))
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("compile network schema: %v", err))
	}
	return schema
}

// validateNetworkDoc checks a decoded JSON document against the network
// schema and returns the list of field-level violations.
func validateNetworkDoc(doc any) []FieldViolation {
	err := compiledSchema.Validate(doc)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []FieldViolation{{Field: "/", Message: err.Error()}}
	}
	return collectViolations(ve, nil)
}

func collectViolations(ve *jsonschema.ValidationError, acc []FieldViolation) []FieldViolation {
	if len(ve.Causes) == 0 {
		field := ve.InstanceLocation
		if field == "" {
			field = "/"
		}
		return append(acc, FieldViolation{Field: field, Message: ve.Message})
	}
	for _, cause := range ve.Causes {
		acc = collectViolations(cause, acc)
	}
	return acc
}
