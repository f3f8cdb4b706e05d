package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/naumangoraya/sos/httpx"
)

type ctxKey string

const (
	bodyCtxKey  = ctxKey("body")
	queryCtxKey = ctxKey("query")
)

const maxBodyBytes = 1 << 20

// Body decodes the JSON object body, validates it against s and stores the
// normalised fields in the request context. Any violation ends the request
// with 400 "Validation failed".
func Body(s Schema, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields, err := decodeObject(r)
			if err != nil {
				httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
				return
			}
			if v := s.Validate(fields, mode); !v.Empty() {
				httpx.ValidationFailed(w, v)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyCtxKey, fields)))
		})
	}
}

// Query validates the first value of each query parameter against s.
func Query(s Schema) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := Fields{}
			for k, vals := range r.URL.Query() {
				if len(vals) > 0 {
					fields[k] = vals[0]
				}
			}
			if v := s.Validate(fields, Partial); !v.Empty() {
				httpx.ValidationFailed(w, v)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), queryCtxKey, fields)))
		})
	}
}

// PathID requires the named path parameter to be an integer of at least 1.
func PathID(name string) func(http.Handler) http.Handler {
	rule := Field(name).Required().IntMin(1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := Fields{name: r.PathValue(name)}
			if v := (Schema{rule}).Validate(fields, Full); !v.Empty() {
				httpx.ValidationFailed(w, v)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FieldsFrom returns the validated body, or an empty set.
func FieldsFrom(ctx context.Context) Fields {
	if f, ok := ctx.Value(bodyCtxKey).(Fields); ok {
		return f
	}
	return Fields{}
}

// QueryFrom returns the validated query parameters, or an empty set.
func QueryFrom(ctx context.Context) Fields {
	if f, ok := ctx.Value(queryCtxKey).(Fields); ok {
		return f
	}
	return Fields{}
}

func decodeObject(r *http.Request) (Fields, error) {
	if r.Body == nil {
		return Fields{}, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Fields{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = Fields{}
	}
	return fields, nil
}
