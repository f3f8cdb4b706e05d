package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/naumangoraya/sos/validation"
	"github.com/shopspring/decimal"
)

// Kind selects how a validated request value is stored.
type Kind int

const (
	Text        Kind = iota // "" when empty
	NullText                // NULL when empty
	Int                     // 0 when empty
	NullInt                 // NULL when empty
	Decimal                 // 0 when empty
	NullDecimal             // NULL when empty
	Boolean
	Date
	ID
)

// Column maps a request field to a table column.
type Column struct {
	JSON string
	DB   string
	Kind Kind
	// SkipEmpty leaves the column alone when the field is empty, so the
	// model default applies on create and the stored value survives updates.
	SkipEmpty bool
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	}
	return fmt.Sprint(v)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case json.Number:
		n, err := t.Int64()
		return int(n), err
	case float64:
		return int(t), nil
	}
	return 0, fmt.Errorf("not an integer: %v", v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	}
	return decimal.NewFromString(strings.TrimSpace(text(v)))
}

// coerce converts one validated value to the form stored in its column.
func (c Column) coerce(v any) (any, error) {
	empty := blank(v)
	switch c.Kind {
	case Text:
		return text(v), nil
	case NullText:
		if empty {
			return nil, nil
		}
		return text(v), nil
	case Int:
		if empty {
			return 0, nil
		}
		return toInt(v)
	case NullInt:
		if empty {
			return nil, nil
		}
		return toInt(v)
	case Decimal:
		if empty {
			return decimal.Zero, nil
		}
		return toDecimal(v)
	case NullDecimal:
		if empty {
			return decimal.NullDecimal{}, nil
		}
		d, err := toDecimal(v)
		return decimal.NewNullDecimal(d), err
	case Boolean:
		b, _ := v.(bool)
		return b, nil
	case Date:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		return nil, fmt.Errorf("not a date: %v", v)
	case ID:
		n, err := toInt(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("not an id: %v", v)
		}
		return uint(n), nil
	}
	return v, nil
}

// Patch returns the column updates for the fields the client sent. Absent
// fields are not touched; present empty values are applied.
func Patch(f validation.Fields, cols []Column) (map[string]any, error) {
	patch := map[string]any{}
	for _, c := range cols {
		v, ok := f[c.JSON]
		if !ok || (c.SkipEmpty && blank(v)) {
			continue
		}
		val, err := c.coerce(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.JSON, err)
		}
		patch[c.DB] = val
	}
	return patch, nil
}

// document builds the JSON object of the coerced fields, keyed by field name.
func document(f validation.Fields, cols []Column) (map[string]any, error) {
	doc := map[string]any{}
	for _, c := range cols {
		v, ok := f[c.JSON]
		if !ok || (c.SkipEmpty && blank(v)) {
			continue
		}
		val, err := c.coerce(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.JSON, err)
		}
		doc[c.JSON] = val
	}
	return doc, nil
}

// Decode fills dst from the declared columns of f; undeclared fields such
// as id or timestamps are ignored.
func Decode(f validation.Fields, cols []Column, dst any) error {
	doc, err := document(f, cols)
	if err != nil {
		return err
	}
	return roundTrip(doc, dst)
}

// DecodeLines fills the slice field of dst tagged name from the array
// field of the same name, coercing every element through cols.
func DecodeLines(f validation.Fields, name string, cols []Column, dst any) error {
	raw, _ := f[name].([]any)
	docs := make([]map[string]any, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("%s[%d]: not an object", name, i)
		}
		doc, err := document(validation.Fields(obj), cols)
		if err != nil {
			return fmt.Errorf("%s[%d].%w", name, i, err)
		}
		docs = append(docs, doc)
	}
	return roundTrip(map[string]any{name: docs}, dst)
}

func roundTrip(src, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
