// Package template substitutes %field% placeholders in message templates
// with values taken from a business record's field manifest.
package template

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Renderable exposes a record's renderable fields by name. Callers provide a
// static manifest per record type instead of a live schema lookup.
type Renderable interface {
	Fields() map[string]any
}

// DisplayNamer lets referenced entities render as their display name.
type DisplayNamer interface {
	DisplayName() string
}

// Render replaces every %f% in tmpl, where f is a key of fields, with the
// stringified field value. Substitution happens in a single pass over the
// template, so placeholders appearing inside a field's value are emitted
// verbatim. Unknown placeholders are left verbatim too. Render never
// fails: a nil field map returns the template unchanged.
func Render(tmpl string, fields map[string]any) string {
	if tmpl == "" || len(fields) == 0 {
		return tmpl
	}

	pairs := make([]string, 0, 2*len(fields))
	for name, value := range fields {
		placeholder := "%" + name + "%"
		if !strings.Contains(tmpl, placeholder) {
			continue
		}
		pairs = append(pairs, placeholder, Stringify(value))
	}
	if len(pairs) == 0 {
		return tmpl
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// RenderRecord renders tmpl against a record's field manifest.
func RenderRecord(tmpl string, record Renderable) string {
	if record == nil {
		return tmpl
	}
	return Render(tmpl, record.Fields())
}

// Stringify converts a field value to its SMS text form: nil becomes empty,
// booleans become Yes/No, display-named entities their name, and lists their
// elements joined by ", ".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case DisplayNamer:
		return v.DisplayName()
	case []string:
		return strings.Join(v, ", ")
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, Stringify(rv.Index(i).Interface()))
		}
		return strings.Join(parts, ", ")
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return Stringify(rv.Elem().Interface())
	}

	return fmt.Sprintf("%v", value)
}

// formatFloat renders a float the way source records display them:
// integral values keep a trailing ".0" (150.0 stays "150.0").
func formatFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
