package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaErr  error
	schemaByTy map[string]*jsonschema.Schema
)

var schemaFiles = map[string]string{
	TypeSubscribe:  "subscribe.schema.json",
	TypePosition:   "position.schema.json",
	TypePlacements: "placements.schema.json",
	TypeTick:       "tick.schema.json",
}

func loadSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, name := range schemaFiles {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("schema %s: %w", name, err)
			return
		}
	}
	out := make(map[string]*jsonschema.Schema, len(schemaFiles))
	for typ, name := range schemaFiles {
		s, err := c.Compile(name)
		if err != nil {
			schemaErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		out[typ] = s
	}
	schemaByTy = out
}

// Validate checks a raw message against the schema for its declared type.
func Validate(raw []byte) error {
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	base, err := DecodeBase(raw)
	if err != nil {
		return err
	}
	s := schemaByTy[base.Type]
	if s == nil {
		return fmt.Errorf("unknown message type %q", base.Type)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}

// ValidateValue marshals v and validates it. Used for outbound messages in
// tests.
func ValidateValue(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Validate(raw)
}
