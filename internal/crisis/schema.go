package crisis

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const categorySchemaURL = "https://whisperbox.schemas.local/crisis/category.schema.json"

const categorySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["keywords", "level"],
  "properties": {
    "keywords": {
      "type": "array",
      "items": {"type": "string"}
    },
    "level": {
      "type": "string",
      "pattern": "^\\s*(?i:critical|high|medium|low)\\s*$"
    },
    "action": {"type": "string"},
    "user_message": {"type": "string"},
    "notify_moderation": {"type": "boolean"},
    "store_flag": {"type": "boolean"},
    "resources": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string"},
          "url": {"type": "string"},
          "type": {"type": "string"}
        }
      }
    }
  }
}`

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
)

func categoryValidator() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(categorySchemaURL, strings.NewReader(categorySchema)); err != nil {
			compiledSchemaErr = fmt.Errorf("crisis: category schema load failed: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = c.Compile(categorySchemaURL)
		if compiledSchemaErr != nil {
			compiledSchemaErr = fmt.Errorf("crisis: category schema compile failed: %w", compiledSchemaErr)
		}
	})
	return compiledSchema, compiledSchemaErr
}
