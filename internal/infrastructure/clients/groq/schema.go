package groq

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// billSchema is the minimal contract the raw extraction must satisfy before
// the normalizer is allowed to coerce it: a JSON object whose line_items, if
// present, is an array of objects. Anything softer (missing fields, numbers
// as strings) is the normalizer's job; anything harder is an extraction
// failure.
const billSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "line_items": {
      "type": "array",
      "items": { "type": "object" }
    }
  }
}`

var billSchema = jsonschema.MustCompileString("bill.schema.json", billSchemaJSON)
