// Package schema derives JSON Schema documents from the output types, so
// consumers can validate what alpkit prints.
package schema

import (
	"encoding"
	"path"
	"reflect"
	"strings"
	"time"
)

// Draft is the dialect of generated schemas.
const Draft = "https://json-schema.org/draft/2019-09/schema"

// Provider is implemented by types whose JSON form differs from their Go
// structure.
type Provider interface {
	JSONSchema() map[string]any
}

var (
	providerType      = reflect.TypeOf((*Provider)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	timeType          = reflect.TypeOf(time.Time{})
)

type generator struct {
	defs  map[string]any
	names map[reflect.Type]string
	taken map[string]bool
}

// Generate returns the schema of the encoding/json form of v, titled after
// v's type. Named struct types are placed under $defs. v must not be nil.
func Generate(v any) map[string]any {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	g := &generator{
		defs:  make(map[string]any),
		names: make(map[reflect.Type]string),
		taken: make(map[string]bool),
	}

	var s map[string]any
	if t.Kind() == reflect.Struct && !t.Implements(providerType) && t != timeType {
		g.names[t] = ""
		s = g.object(t)
	} else {
		s = g.schemaFor(t)
	}

	s["$schema"] = Draft
	s["title"] = t.Name()
	if len(g.defs) > 0 {
		s["$defs"] = g.defs
	}
	return s
}

func (g *generator) schemaFor(t reflect.Type) map[string]any {
	if t.Kind() != reflect.Pointer && t.Implements(providerType) {
		return reflect.Zero(t).Interface().(Provider).JSONSchema()
	}
	if t == timeType {
		return map[string]any{"type": "string", "format": "date-time"}
	}
	if t.Kind() != reflect.Pointer && t.Implements(textMarshalerType) {
		return map[string]any{"type": "string"}
	}

	switch t.Kind() {
	case reflect.Pointer:
		return g.schemaFor(t.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return map[string]any{"type": "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer", "minimum": 0}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "contentEncoding": "base64"}
		}
		return map[string]any{"type": "array", "items": g.schemaFor(t.Elem())}
	case reflect.Array:
		return map[string]any{
			"type":     "array",
			"items":    g.schemaFor(t.Elem()),
			"minItems": t.Len(),
			"maxItems": t.Len(),
		}
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": g.schemaFor(t.Elem())}
	case reflect.Struct:
		return g.ref(t)
	default:
		return map[string]any{}
	}
}

// ref returns a reference to the definition of t, generating it first.
func (g *generator) ref(t reflect.Type) map[string]any {
	if t.Name() == "" {
		return g.object(t)
	}
	name, ok := g.names[t]
	if !ok {
		name = t.Name()
		if g.taken[name] {
			name = path.Base(t.PkgPath()) + "." + name
		}
		g.names[t] = name
		g.taken[name] = true
		g.defs[name] = g.object(t)
	}
	if name == "" {
		return map[string]any{"$ref": "#"}
	}
	return map[string]any{"$ref": "#/$defs/" + name}
}

func (g *generator) object(t reflect.Type) map[string]any {
	props := make(map[string]any)
	var required []string
	g.fields(t, props, &required)

	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// fields collects the properties of t the way encoding/json lays them out,
// promoting the fields of untagged embedded structs.
func (g *generator) fields(t reflect.Type, props map[string]any, required *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				g.fields(ft, props, required)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}

		s := g.schemaFor(f.Type)
		if !hasOption(opts, "omitempty") {
			*required = append(*required, name)
			switch f.Type.Kind() {
			case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
				s = nullable(s)
			}
		}
		props[name] = s
	}
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// nullable widens s to also accept null, which encoding/json writes for
// nil pointers, slices and maps.
func nullable(s map[string]any) map[string]any {
	if typ, ok := s["type"].(string); ok {
		s["type"] = []string{typ, "null"}
		return s
	}
	return map[string]any{"anyOf": []any{s, map[string]any{"type": "null"}}}
}
