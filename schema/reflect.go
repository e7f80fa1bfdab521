package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// For returns the JSON Schema of v's type as a generic document, ready for
// Validate or for serving to clients.
//
// Struct fields without omitempty are required and unknown fields are
// rejected.
func For(v any) map[string]any {
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(v)
	b, err := json.Marshal(s)
	if err != nil {
		// Reflected schemas only hold marshalable values.
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}
