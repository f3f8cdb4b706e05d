package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func decode(t *testing.T, body string) Fields {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var f Fields
	if err := dec.Decode(&f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f
}

func fieldsOf(v Violations) map[string]string {
	out := make(map[string]string, len(v))
	for _, x := range v {
		out[x.Field] = x.Message
	}
	return out
}

func TestCollectsEveryViolation(t *testing.T) {
	f := decode(t, `{"code":"","email":"nope","creditDays":-1,"creditLimit":"abc"}`)
	v := Customer.Validate(f, Full)
	got := fieldsOf(v)
	for _, field := range []string{"code", "email", "creditDays", "creditLimit"} {
		if _, ok := got[field]; !ok {
			t.Errorf("expected violation for %s, got %v", field, got)
		}
	}
	if len(v) != 4 {
		t.Fatalf("expected 4 violations got %d: %v", len(v), v)
	}
}

func TestTrimAndLength(t *testing.T) {
	f := decode(t, `{"code":"  C-1  ","title":"Acme"}`)
	if v := Customer.Validate(f, Full); !v.Empty() {
		t.Fatalf("unexpected violations: %v", v)
	}
	if f["code"] != "C-1" {
		t.Fatalf("expected trimmed code, got %q", f["code"])
	}

	long := decode(t, `{"code":"123456789012345678901"}`)
	v := Customer.Validate(long, Full)
	if got := fieldsOf(v)["code"]; got != "code must be between 1 and 20 characters" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNumericStringsAreCoerced(t *testing.T) {
	f := decode(t, `{"itemId":"BC1","sheetsPerPacket":"50","grams":250,"width":"45.5","isConstant":"true"}`)
	if v := Item.Validate(f, Full); !v.Empty() {
		t.Fatalf("unexpected violations: %v", v)
	}
	if f["sheetsPerPacket"] != 50 {
		t.Fatalf("sheetsPerPacket = %#v, want 50", f["sheetsPerPacket"])
	}
	if f["grams"] != 250 {
		t.Fatalf("grams = %#v, want 250", f["grams"])
	}
	if f["width"] != json.Number("45.5") {
		t.Fatalf("width = %#v", f["width"])
	}
	if f["isConstant"] != true {
		t.Fatalf("isConstant = %#v", f["isConstant"])
	}
}

func TestEmptyOptionalIsSkipped(t *testing.T) {
	f := decode(t, `{"itemId":"BC1","sheetsPerPacket":"","width":null}`)
	if v := Item.Validate(f, Full); !v.Empty() {
		t.Fatalf("unexpected violations: %v", v)
	}
	if !f.Has("sheetsPerPacket") || f["sheetsPerPacket"] != "" {
		t.Fatalf("empty value should stay present and untouched: %#v", f["sheetsPerPacket"])
	}
}

func TestPartialModeSkipsAbsentRequired(t *testing.T) {
	f := decode(t, `{"title":"Only title"}`)
	if v := Customer.Validate(f, Partial); !v.Empty() {
		t.Fatalf("unexpected violations: %v", v)
	}
	blank := decode(t, `{"code":"   "}`)
	if v := Customer.Validate(blank, Partial); len(v) != 1 {
		t.Fatalf("present but blank required field must fail, got %v", v)
	}
}

func TestEnumAndDate(t *testing.T) {
	f := decode(t, `{"invoiceDate":"2024-05-01","customerId":1,"storeId":"2","status":"OPEN","paymentType":"Card"}`)
	got := fieldsOf(SaleInvoice.Validate(f, Full))
	if _, ok := got["status"]; !ok {
		t.Errorf("expected status violation: %v", got)
	}
	if _, ok := got["paymentType"]; !ok {
		t.Errorf("expected paymentType violation: %v", got)
	}
	if _, ok := f["invoiceDate"].(time.Time); !ok {
		t.Errorf("invoiceDate not normalised: %#v", f["invoiceDate"])
	}
	if f["storeId"] != 2 {
		t.Errorf("storeId = %#v, want 2", f["storeId"])
	}
}

func TestNestedLines(t *testing.T) {
	f := decode(t, `{"invoiceDate":"2024-05-01T10:00:00Z","supplierId":1,"storeId":1,"lines":[{"itemId":"A","rate":"2"},{"rate":-1},"x"]}`)
	got := fieldsOf(PurchaseInvoice.Validate(f, Full))
	for _, field := range []string{"lines[1].itemId", "lines[1].rate", "lines[2]"} {
		if _, ok := got[field]; !ok {
			t.Errorf("expected violation for %s, got %v", field, got)
		}
	}
	first := f["lines"].([]any)[0].(map[string]any)
	if first["rate"] != json.Number("2") {
		t.Errorf("line value not normalised: %#v", first["rate"])
	}
}

func TestRegisterUsernamePattern(t *testing.T) {
	f := decode(t, `{"username":"bad name","email":"A@Example.com","password":"secret1"}`)
	v := Register.Validate(f, Full)
	if got := fieldsOf(v)["username"]; got == "" {
		t.Fatalf("expected username violation, got %v", v)
	}
	if f["email"] != "a@example.com" {
		t.Fatalf("email not normalised: %v", f["email"])
	}
}

func TestBodyMiddleware(t *testing.T) {
	var seen Fields
	h := Body(Store, Full)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FieldsFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/stores", strings.NewReader(`{"storeName":" Main "}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", w.Code)
	}
	if seen["storeName"] != "Main" {
		t.Fatalf("unexpected fields %v", seen)
	}

	req = httptest.NewRequest(http.MethodPost, "/stores", strings.NewReader(`{"status":"Closed"}`))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	var env struct {
		Success bool        `json:"success"`
		Message string      `json:"message"`
		Errors  []Violation `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success || env.Message != "Validation failed" || len(env.Errors) != 2 {
		t.Fatalf("unexpected envelope %+v", env)
	}

	req = httptest.NewRequest(http.MethodPost, "/stores", strings.NewReader(`{not json`))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body got %d", w.Code)
	}
}

func TestQueryAndPathID(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	w := httptest.NewRecorder()
	Query(Search)(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/customers?limit=500", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit=500 got %d", w.Code)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /customers/{id}", PathID("id")(ok))
	for path, want := range map[string]int{"/customers/7": 200, "/customers/0": 400, "/customers/abc": 400} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("%s: expected %d got %d", path, want, w.Code)
		}
	}
}
