package curriculum

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/crypto/blake2b"
)

// sourceSchema is the minimum shape a source must have to be merged:
// an object root carrying curriculumData.areas as an array. Everything
// below the area level is checked by Validate instead.
const sourceSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["curriculumData"],
  "properties": {
    "curriculumData": {
      "type": "object",
      "required": ["areas"],
      "properties": {
        "areas": {
          "type": "array",
          "items": {"type": "object"}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(sourceSchema))
	})
	return compiledSchema, schemaErr
}

// CheckShape validates a JSON payload against the source schema.
func CheckShape(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile source schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema check: %s", strings.Join(msgs, "; "))
}

// Digest returns the hex BLAKE2b-256 digest of a source payload.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
