// internal/workers/discovery/discover-businesses/validation.go
package discoverbusinesses

import "niche-finder/internal/common/validation"

const inputSchema = `{
  "type": "object",
  "properties": {
    "location": {
      "type": "object",
      "required": ["latitude", "longitude"],
      "properties": {
        "latitude":  {"type": "number", "minimum": -90,  "maximum": 90},
        "longitude": {"type": "number", "minimum": -180, "maximum": 180}
      }
    },
    "placeName":    {"type": "string", "minLength": 1, "maxLength": 200},
    "radius":       {"type": "integer", "minimum": 1, "maximum": 50000},
    "radiusMiles":  {"type": "number", "minimum": 0},
    "businessType": {"type": "string", "pattern": "^[a-z_]+$"},
    "maxPages":     {"type": "integer", "minimum": 0},
    "filters": {
      "type": "object",
      "properties": {
        "withoutWebsite":      {"type": "boolean"},
        "operationalOnly":     {"type": "boolean"},
        "requirePhone":        {"type": "boolean"},
        "requireRecentReview": {"type": "boolean"},
        "requireAnyReview":    {"type": "boolean"}
      },
      "additionalProperties": false
    }
  },
  "anyOf": [
    {"required": ["location"]},
    {"required": ["placeName"]}
  ],
  "oneOf": [
    {"required": ["radius"]},
    {"required": ["radiusMiles"]}
  ]
}`

var schema = validation.MustCompileSchema(inputSchema)

func GetInputSchema() *validation.Schema {
	return schema
}
