// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// inlineReflector inlines nested types and closes every struct object.
// Only fields tagged required are required.
var inlineReflector = &jsonschema.Reflector{
	Anonymous:                  true,
	DoNotReference:             true,
	RequiredFromJSONSchemaTags: true,
}

// refReflector serves self-referencing types, which cannot be inlined.
var refReflector = &jsonschema.Reflector{
	Anonymous:                  true,
	RequiredFromJSONSchemaTags: true,
}

// GenerateSchema returns a JSON Schema describing T. Struct fields honour
// `json` names and `jsonschema` tags:
//
//	type Verdict struct {
//	    Score  int    `json:"score"  jsonschema:"required,description=0-100"`
//	    Label  string `json:"label"  jsonschema:"enum=pass,enum=fail"`
//	}
func GenerateSchema[T any]() json.RawMessage {
	return SchemaOf(reflect.TypeFor[T]())
}

// SchemaOf returns a JSON Schema for the reflected type t. Any type works:
// structs (named or anonymous), slices, maps and scalars.
func SchemaOf(t reflect.Type) json.RawMessage {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r := inlineReflector
	if recursive(t, map[reflect.Type]bool{}) {
		r = refReflector
	}
	s := r.ReflectFromType(t)
	s.Version = ""
	b, _ := json.Marshal(s)
	return b
}

// recursive reports whether a struct reachable from t contains itself.
func recursive(t reflect.Type, path map[reflect.Type]bool) bool {
	for k := t.Kind(); k == reflect.Pointer || k == reflect.Slice || k == reflect.Array || k == reflect.Map; k = t.Kind() {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	if path[t] {
		return true
	}
	path[t] = true
	defer delete(path, t)
	for i := range t.NumField() {
		if f := t.Field(i); f.IsExported() || f.Anonymous {
			if recursive(f.Type, path) {
				return true
			}
		}
	}
	return false
}
