package codec

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const snapshotSchemaName = "snapshot.schema.json"

// snapshotSchema only checks the envelope. Field-level problems are coerced
// during the merge instead of rejected.
const snapshotSchemaJSON = `{
  "type": "object",
  "required": ["meta", "criteria"],
  "properties": {
    "meta": {"type": "object"},
    "criteria": {"type": "array"}
  }
}`

var snapshotSchema = mustCompileSchema(snapshotSchemaJSON, snapshotSchemaName)

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}
