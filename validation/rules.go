package validation

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Trim converts the value to a string and strips surrounding whitespace.
func (r *Rule) Trim() *Rule {
	return r.add(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, r.name + " must be a string"
		}
		return strings.TrimSpace(s), ""
	})
}

// Length bounds the string length in characters.
func (r *Rule) Length(min, max int) *Rule {
	return r.add(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, r.name + " must be a string"
		}
		if n := utf8.RuneCountInString(s); n < min || n > max {
			return nil, fmt.Sprintf("%s must be between %d and %d characters", r.name, min, max)
		}
		return s, ""
	})
}

func (r *Rule) MaxLength(max int) *Rule {
	return r.add(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, r.name + " must be a string"
		}
		if utf8.RuneCountInString(s) > max {
			return nil, fmt.Sprintf("%s must be at most %d characters", r.name, max)
		}
		return s, ""
	})
}

func (r *Rule) MinLength(min int) *Rule {
	return r.add(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, r.name + " must be a string"
		}
		if utf8.RuneCountInString(s) < min {
			return nil, fmt.Sprintf("%s must be at least %d characters", r.name, min)
		}
		return s, ""
	})
}

// IntMin accepts integers and integer strings not below min; the value
// is normalised to int.
func (r *Rule) IntMin(min int) *Rule {
	return r.add(func(v any) (any, string) {
		n, ok := asInt(v)
		if !ok || n < min {
			return nil, fmt.Sprintf("%s must be an integer of at least %d", r.name, min)
		}
		return n, ""
	})
}

func (r *Rule) IntRange(min, max int) *Rule {
	return r.add(func(v any) (any, string) {
		n, ok := asInt(v)
		if !ok || n < min || n > max {
			return nil, fmt.Sprintf("%s must be an integer between %d and %d", r.name, min, max)
		}
		return n, ""
	})
}

// FloatMin accepts numbers and numeric strings not below min. The value
// is normalised to a json.Number so no precision is lost downstream.
func (r *Rule) FloatMin(min float64) *Rule {
	return r.add(func(v any) (any, string) {
		s, ok := asString(v)
		if ok {
			s = strings.TrimSpace(s)
		}
		f, err := strconv.ParseFloat(s, 64)
		if !ok || err != nil || f < min {
			return nil, fmt.Sprintf("%s must be a number of at least %s", r.name, strconv.FormatFloat(min, 'f', -1, 64))
		}
		return json.Number(s), ""
	})
}

// Bool accepts true/false, 1/0 and their string forms.
func (r *Rule) Bool() *Rule {
	return r.add(func(v any) (any, string) {
		switch t := v.(type) {
		case bool:
			return t, ""
		case string, json.Number, float64:
			s, _ := asString(t)
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "1":
				return true, ""
			case "false", "0":
				return false, ""
			}
		}
		return nil, r.name + " must be a boolean"
	})
}

func (r *Rule) OneOf(values ...string) *Rule {
	return r.add(func(v any) (any, string) {
		s, _ := asString(v)
		for _, allowed := range values {
			if s == allowed {
				return s, ""
			}
		}
		return nil, fmt.Sprintf("%s must be one of %s", r.name, strings.Join(values, ", "))
	})
}

// Email checks the address and normalises it to lower case.
func (r *Rule) Email() *Rule {
	return r.add(func(v any) (any, string) {
		s, ok := v.(string)
		if ok {
			s = strings.TrimSpace(s)
		}
		addr, err := mail.ParseAddress(s)
		if !ok || err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@"):], ".") {
			return nil, r.name + " must be a valid email"
		}
		return strings.ToLower(s), ""
	})
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// Date accepts ISO-8601 dates and date-times; the value becomes a time.Time.
func (r *Rule) Date() *Rule {
	return r.add(func(v any) (any, string) {
		s, ok := v.(string)
		if ok {
			s = strings.TrimSpace(s)
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, ""
				}
			}
		}
		return nil, r.name + " must be a valid ISO 8601 date"
	})
}

func (r *Rule) Matches(re *regexp.Regexp, message string) *Rule {
	return r.add(func(v any) (any, string) {
		s, _ := asString(v)
		if !re.MatchString(s) {
			return nil, message
		}
		return s, ""
	})
}

// Each validates every element of an array of objects against s.
func (r *Rule) Each(s Schema) *Rule {
	r.each = s
	return r
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
		return 0, false
	}
	s, ok := asString(v)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
