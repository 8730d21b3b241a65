package render

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed outline.schema.json
var outlineSchema []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("outline.schema.json", bytes.NewReader(outlineSchema)); err != nil {
			schemaErr = fmt.Errorf("load outline schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("outline.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile outline schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Validate checks serialised outline JSON against the embedded schema.
// Pages must also be at least pageBase.
func Validate(data []byte, pageBase int) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode outline for validation: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("outline does not match schema: %w", err)
	}

	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("decode outline for validation: %w", err)
	}
	for i, e := range d.Outline {
		if e.Page < pageBase {
			return fmt.Errorf("outline entry %d: page %d below base %d", i, e.Page, pageBase)
		}
	}
	return nil
}
