package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validator validates request payloads against pre-compiled JSON schemas.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// Schema names understood by the validator.
const (
	SchemaPreferencesUpdate  = "preferences_update"
	SchemaMessageCreate      = "message_create"
	SchemaAnnouncementCreate = "announcement_create"
)

var rawSchemas = map[string]string{
	SchemaPreferencesUpdate: `{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"email": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"enabled": {"type": "boolean"},
					"frequency": {"type": "string", "enum": ["immediate", "daily", "weekly"]},
					"categories": {"type": "array", "items": {"type": "string", "enum": ["auth", "security", "system", "user", "business"]}}
				}
			},
			"push": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"enabled": {"type": "boolean"},
					"categories": {"type": "array", "items": {"type": "string", "enum": ["auth", "security", "system", "user", "business"]}},
					"quietHours": {
						"type": "object",
						"additionalProperties": false,
						"properties": {
							"start": {"type": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"},
							"end": {"type": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"}
						}
					}
				}
			},
			"sms": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"enabled": {"type": "boolean"},
					"categories": {"type": "array", "items": {"type": "string", "enum": ["auth", "security", "system", "user", "business"]}}
				}
			},
			"inApp": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"enabled": {"type": "boolean"},
					"categories": {"type": "array", "items": {"type": "string", "enum": ["auth", "security", "system", "user", "business"]}},
					"maxUnread": {"type": "integer", "minimum": 1, "maximum": 500}
				}
			}
		}
	}`,
	SchemaMessageCreate: `{
		"type": "object",
		"required": ["subject", "content", "type", "sender"],
		"properties": {
			"subject": {"type": "string", "minLength": 1, "maxLength": 200},
			"content": {"type": "string", "minLength": 1},
			"type": {"type": "string", "enum": ["announcement", "alert", "reminder", "information"]},
			"priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
			"sender": {"type": "string", "minLength": 1},
			"senderRole": {"type": "string"},
			"recipients": {"type": "array", "items": {"type": "string"}},
			"targetGroups": {"type": "array", "items": {"type": "string"}},
			"scheduledAt": {"type": "string"},
			"attachments": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["name", "type", "size"],
					"properties": {
						"name": {"type": "string"},
						"type": {"type": "string"},
						"size": {"type": "integer", "minimum": 0},
						"url": {"type": "string"}
					}
				}
			}
		}
	}`,
	SchemaAnnouncementCreate: `{
		"type": "object",
		"required": ["title", "content", "type", "author"],
		"properties": {
			"title": {"type": "string", "minLength": 1, "maxLength": 200},
			"content": {"type": "string", "minLength": 1},
			"type": {"type": "string", "enum": ["general", "important", "emergency"]},
			"author": {"type": "string", "minLength": 1},
			"authorRole": {"type": "string"},
			"visibility": {"type": "string", "enum": ["all", "members", "committee", "staff"]},
			"status": {"type": "string", "enum": ["draft", "published"]},
			"expiresAt": {"type": "string"},
			"attachments": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["name", "type", "size"],
					"properties": {
						"name": {"type": "string"},
						"type": {"type": "string"},
						"size": {"type": "integer", "minimum": 0},
						"url": {"type": "string"}
					}
				}
			}
		}
	}`,
}

// NewValidator compiles the built-in schemas. Compilation failures are
// programming errors, so they surface immediately.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(rawSchemas))}
	for name, raw := range rawSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// Validate checks data against the named schema and returns a joined
// description of every violation.
func (v *Validator) Validate(schemaName string, data map[string]interface{}) error {
	schema, ok := v.schemas[schemaName]
	if !ok {
		return fmt.Errorf("unknown schema: %s", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
