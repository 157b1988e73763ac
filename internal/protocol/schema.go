package protocol

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// ErrBadEnvelope marks a message that failed envelope validation, before any
// rotation was decoded.
var ErrBadEnvelope = errors.New("bad message envelope")

const schemaBaseURL = "https://voxeldisplay.ai/schemas/"

var (
	helloSchema       = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema("hello.schema.json") })
	setRotationSchema = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema("set_rotation.schema.json") })
)

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	return jsonschema.CompileString(schemaBaseURL+name, string(raw))
}

// SchemaSource returns the embedded schema document by file name.
func SchemaSource(name string) ([]byte, error) {
	return schemaFS.ReadFile("schemas/" + name)
}

func ValidateHello(msg []byte) error { return validate(helloSchema, msg) }

// ValidateSetRotation checks the envelope only; the rotation value itself is
// left to the rotation codec so its errors stay typed.
func ValidateSetRotation(msg []byte) error { return validate(setRotationSchema, msg) }

func validate(load func() (*jsonschema.Schema, error), msg []byte) error {
	s, err := load()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	return nil
}
