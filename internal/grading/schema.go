package grading

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// GradeSchema is the JSON schema providers are asked to conform to.
func GradeSchema() map[string]any {
	number := map[string]any{"type": "number"}
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"totalAwarded":  number,
			"totalPossible": number,
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":        str,
						"label":     str,
						"maxPoints": number,
						"points":    number,
						"comments":  str,
					},
					"required":             []string{"id", "label", "maxPoints", "points", "comments"},
					"additionalProperties": false,
				},
			},
			"overallFeedback": str,
		},
		"required":             []string{"totalAwarded", "totalPossible", "items", "overallFeedback"},
		"additionalProperties": false,
	}
}

// schemaExample is embedded in the prompt so models without native
// structured output still see the expected shape.
const schemaExample = `{"totalAwarded":"number","totalPossible":"number","items":[{"id":"string","label":"string","maxPoints":"number","points":"number","comments":"string"}],"overallFeedback":"string"}`

// replySchemaJSON is the minimum a reply must satisfy before clamping.
// Numeric fields are bounded by Clamp, not here.
const replySchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": { "type": "string" },
          "label": { "type": "string" },
          "comments": { "type": "string" }
        }
      }
    },
    "overallFeedback": { "type": ["string", "null"] }
  }
}`

var replySchemaLoader = gojsonschema.NewStringLoader(replySchemaJSON)

// GradeSchemaJSON returns GradeSchema serialized.
func GradeSchemaJSON() string {
	b, _ := json.Marshal(GradeSchema())
	return string(b)
}
