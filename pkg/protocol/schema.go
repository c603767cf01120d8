package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const (
	nameSchema = `{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string"}}
	}`

	messageFromSchema = `{
		"type": "object",
		"required": ["sender", "content"],
		"properties": {
			"sender": {"type": "string"},
			"content": {"type": "string"}
		}
	}`

	excuseSchema = `{
		"type": "object",
		"properties": {"excuse": {"type": ["string", "null"]}}
	}`

	assignStartSchema = `{
		"type": "object",
		"required": ["assignee"],
		"properties": {"assignee": {"type": "string"}}
	}`

	playerOutSchema = `{
		"type": "object",
		"required": ["quitter", "word", "suicide"],
		"properties": {
			"quitter": {"type": "string"},
			"word": {"type": "string"},
			"suicide": {"type": "boolean"}
		}
	}`

	gameWinSchema = `{
		"type": "object",
		"required": ["winner", "word"],
		"properties": {
			"winner": {"type": "string"},
			"word": {"type": "string"}
		}
	}`

	timerResetSchema = `{
		"type": "object",
		"required": ["timer"],
		"properties": {
			"timer": {
				"type": "object",
				"required": ["secs", "nanos"],
				"properties": {
					"secs": {"type": "integer", "minimum": 0},
					"nanos": {"type": "integer", "minimum": 0, "maximum": 999999999}
				}
			}
		}
	}`

	votedAbortSchema = `{
		"type": "object",
		"required": ["abort", "voter"],
		"properties": {
			"abort": {"type": "boolean"},
			"voter": {"type": "string"}
		}
	}`

	voteAbortResultSchema = `{
		"type": "object",
		"required": ["abort"],
		"properties": {"abort": {"type": "boolean"}}
	}`
)

// requiredSchema accepts any object carrying the given keys. Used for
// variants whose field contents are owned by the server.
func requiredSchema(keys ...string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return fmt.Sprintf(`{"type": "object", "required": [%s]}`, strings.Join(quoted, ", "))
}

var (
	schemasOnce sync.Once
	schemas     map[ResponseKind]*gojsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	schemas = make(map[ResponseKind]*gojsonschema.Schema, len(responseVariants))
	for kind, variant := range responseVariants {
		if variant.unit {
			continue
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(variant.schema))
		if err != nil {
			schemasErr = fmt.Errorf("failed to compile schema for %s: %w", kind, err)
			return
		}
		schemas[kind] = s
	}
}

// validateBody checks a variant body against its schema.
func validateBody(kind ResponseKind, body json.RawMessage) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}

	if isNullBody(body) {
		body = json.RawMessage("null")
	}

	result, err := schemas[kind].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return fmt.Errorf("%w: %s does not match schema: %s", ErrMalformedFrame, kind, strings.Join(details, "; "))
	}
	return nil
}
