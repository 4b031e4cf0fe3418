// Package schema declares the labeled-field reply formats veritas asks the
// model to produce and extracts typed values back out of free-text replies.
//
// A Schema is the single source of truth for a request kind: the prompt
// builder renders its labels and hints into the instruction, and Extract
// reads the same labels back. Adding a request kind means declaring a new
// Schema, not writing new parsing code.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the type a field's value is coerced to.
type Kind int

const (
	Text Kind = iota
	Int
	Enum
	Bool
	List
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Int:
		return "int"
	case Enum:
		return "enum"
	case Bool:
		return "bool"
	case List:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Capture is how far a field's value region extends past its label.
type Capture int

const (
	// Line captures the rest of the line.
	Line Capture = iota
	// Block captures up to the next label of the same schema.
	Block
	// Rest captures to the end of the text. Declare it last.
	Rest
)

// Field describes one labeled value in a reply.
type Field struct {
	// Name is the key under which the value is returned.
	Name string
	// Label is the token the model writes before the colon, e.g. RISK_LEVEL.
	Label   string
	Kind    Kind
	Capture Capture

	// Default is returned when the label is absent or coercion fails. Its
	// dynamic type must match Kind: string for Text and Enum, int for Int,
	// bool for Bool. List fields default to an empty slice.
	Default any

	// Enum lists the allowed literals in canonical casing.
	Enum []string
	// Truthy lists the words that make a Bool field true.
	Truthy []string

	// Hint is rendered after the label in prompts, e.g. "[0-100 integer]".
	Hint string

	// RawFallback makes an empty or missing Text field return the whole
	// reply verbatim instead of Default.
	RawFallback bool
}

// Schema is an ordered list of fields.
type Schema struct {
	Name   string
	Fields []Field

	matchers []*labelMatcher
}

// New builds a schema. It panics if two fields share a name or label, or if
// a field's default does not match its kind; schemas are declared in code.
func New(name string, fields ...Field) *Schema {
	s := &Schema{Name: name, Fields: fields}
	names := make(map[string]bool, len(fields))
	labels := make(map[string]bool, len(fields))
	for _, f := range fields {
		if names[f.Name] {
			panic(fmt.Sprintf("schema %s: duplicate field name %q", name, f.Name))
		}
		if labels[strings.ToUpper(f.Label)] {
			panic(fmt.Sprintf("schema %s: duplicate label %q", name, f.Label))
		}
		names[f.Name] = true
		labels[strings.ToUpper(f.Label)] = true
		if err := checkDefault(f); err != nil {
			panic(fmt.Sprintf("schema %s: %v", name, err))
		}
		s.matchers = append(s.matchers, newLabelMatcher(f.Label))
	}
	return s
}

func checkDefault(f Field) error {
	ok := true
	switch f.Kind {
	case Text, Enum:
		_, ok = f.Default.(string)
	case Int:
		_, ok = f.Default.(int)
	case Bool:
		_, ok = f.Default.(bool)
	case List:
		ok = f.Default == nil
		if !ok {
			_, ok = f.Default.([]string)
		}
	}
	if !ok {
		return fmt.Errorf("field %q: default %T does not match kind %s", f.Name, f.Default, f.Kind)
	}
	return nil
}

// Labels returns the field labels in declaration order.
func (s *Schema) Labels() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Label
	}
	return out
}

// Render returns the reply format block used in prompts, one
// "LABEL: hint" line per field.
func (s *Schema) Render() string {
	var b strings.Builder
	for _, f := range s.Fields {
		b.WriteString(f.Label)
		b.WriteString(":")
		if f.Hint != "" {
			b.WriteString(" ")
			b.WriteString(f.Hint)
		}
		b.WriteString("\n")
	}
	return b.String()
}
