package curriculum

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

// treeSchema describes the topic tree document returned by the Catalog API.
const treeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["topics"],
  "properties": {
    "curriculum_id": {"type": "string"},
    "topics": {"type": "array", "items": {"$ref": "#/definitions/node"}}
  },
  "definitions": {
    "node": {
      "type": "object",
      "required": ["id", "name"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "name": {"type": "string"},
        "children": {"type": "array", "items": {"$ref": "#/definitions/node"}}
      }
    }
  }
}`

var treeSchemaLoader = gojsonschema.NewStringLoader(treeSchema)

// ValidateTreeJSON checks a raw topic tree document before it is decoded.
func ValidateTreeJSON(data []byte) error {
	result, err := gojsonschema.Validate(treeSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate topic tree: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid topic tree: %s: %w", strings.Join(msgs, "; "), errs.ErrDataIntegrity)
}
