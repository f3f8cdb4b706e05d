// Package validation checks request input against declarative per-field
// rule chains and collects every violation instead of stopping at the first.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Violation describes one rejected field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

type Violations []Violation

func (v Violations) Empty() bool { return len(v) == 0 }

func (v *Violations) Add(field, message string, value any) {
	*v = append(*v, Violation{Field: field, Message: message, Value: value})
}

// Fields is a decoded request object. A key is present only when the
// client sent it, so a nil value means an explicit null.
type Fields map[string]any

func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// String returns the textual form of a field, or "" when absent or null.
func (f Fields) String(name string) string {
	s, _ := asString(f[name])
	return s
}

// Mode selects how required fields are treated.
type Mode int

const (
	// Full requires every required field.
	Full Mode = iota
	// Partial only checks the fields that are present.
	Partial
)

// Schema is an ordered list of field rules.
type Schema []*Rule

// Validate runs every rule against f, replacing values with their
// normalised form (trimmed strings, parsed numbers, dates) on success.
func (s Schema) Validate(f Fields, mode Mode) Violations {
	var out Violations
	for _, r := range s {
		r.apply(f, mode, "", &out)
	}
	return out
}

// Rule is the chain of checks for one field.
type Rule struct {
	name     string
	required bool
	steps    []step
	each     Schema
}

// step checks a value and returns its normalised form, or a message.
type step func(v any) (any, string)

func Field(name string) *Rule { return &Rule{name: name} }

func (r *Rule) Required() *Rule {
	r.required = true
	return r
}

func (r *Rule) add(s step) *Rule {
	r.steps = append(r.steps, s)
	return r
}

func (r *Rule) apply(f Fields, mode Mode, prefix string, out *Violations) {
	field := prefix + r.name
	v, present := f[r.name]
	if isEmpty(v) {
		if r.required && (mode == Full || present) {
			out.Add(field, r.name+" is required", v)
		}
		return
	}
	for _, s := range r.steps {
		next, msg := s(v)
		if msg != "" {
			out.Add(field, msg, v)
			return
		}
		v = next
	}
	if r.each != nil {
		items, ok := v.([]any)
		if !ok {
			out.Add(field, r.name+" must be an array", v)
			return
		}
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				out.Add(fmt.Sprintf("%s[%d]", field, i), "must be an object", item)
				continue
			}
			for _, child := range r.each {
				child.apply(Fields(obj), Full, fmt.Sprintf("%s[%d].", field, i), out)
			}
		}
	}
	f[r.name] = v
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// asString accepts JSON strings and numbers.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return fmt.Sprint(t), true
	case int:
		return fmt.Sprint(t), true
	}
	return "", false
}
