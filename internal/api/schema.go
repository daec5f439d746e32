package api

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/todo.schema.json
var todoSchemaJSON []byte

const schemaURL = "https://tada.local/schema/todo.schema.json"

type schemas struct {
	todo *jsonschema.Schema
	list *jsonschema.Schema
}

func loadSchemas() (*schemas, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, bytes.NewReader(todoSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add todo schema: %w", err)
	}
	todo, err := compiler.Compile(schemaURL + "#/$defs/todo")
	if err != nil {
		return nil, fmt.Errorf("compile todo schema: %w", err)
	}
	list, err := compiler.Compile(schemaURL + "#/$defs/list")
	if err != nil {
		return nil, fmt.Errorf("compile list schema: %w", err)
	}
	return &schemas{todo: todo, list: list}, nil
}

func (s *schemas) validateTodo(body []byte) error { return validate(s.todo, body) }
func (s *schemas) validateList(body []byte) error { return validate(s.list, body) }

func validate(schema *jsonschema.Schema, body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("%s", firstLeaf(ve))
		}
		return err
	}
	return nil
}

// firstLeaf digs to the most specific cause so messages stay one line.
func firstLeaf(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
