package jsonapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDocumentBuilder(t *testing.T) {
	t.Run("DataResource sets single resource", func(t *testing.T) {
		doc := NewDocument().DataResource(Resource{Type: "organization", ID: "org1"}).Build()
		r, ok := doc.Data.(Resource)
		if !ok {
			t.Fatal("Data should be Resource type")
		}
		if r.ID != "org1" {
			t.Errorf("Resource ID = %v, want org1", r.ID)
		}
	})

	t.Run("Errors clears data", func(t *testing.T) {
		doc := NewDocument().
			DataResource(Resource{Type: "organization", ID: "org1"}).
			Errors(ErrBadRequest("bad")).
			Build()
		if doc.Data != nil {
			t.Error("Errors should clear Data")
		}
		if len(doc.Errors) != 1 {
			t.Errorf("len(Errors) = %d, want 1", len(doc.Errors))
		}
	})

	t.Run("MetaAll merges", func(t *testing.T) {
		doc := NewDocument().Meta("a", 1).MetaAll(Meta{"b": 2}).Build()
		if doc.Meta["a"] != 1 || doc.Meta["b"] != 2 {
			t.Errorf("Meta = %v", doc.Meta)
		}
	})

	t.Run("JSONAPI sets version", func(t *testing.T) {
		doc := NewDocument().JSONAPI().Build()
		if doc.JSONAPI == nil || doc.JSONAPI.Version != Version {
			t.Errorf("JSONAPI = %+v", doc.JSONAPI)
		}
	})

	t.Run("error document meta", func(t *testing.T) {
		doc := NewErrorDocument(ErrNotFound(""))
		if doc.Meta["status"] != "error" {
			t.Errorf("meta.status = %v, want error", doc.Meta["status"])
		}
	})
}

func TestResourceBuilder(t *testing.T) {
	r := NewResource("service", "s1").
		Attrs(map[string]any{"name": "Meals", "id": "s1"}).
		Attr("status", "active").
		Self("/api/v1/hsds/service/s1").
		Build()

	if r.Type != "service" || r.ID != "s1" {
		t.Errorf("identity = %s/%s", r.Type, r.ID)
	}
	if len(r.Attributes) != 3 {
		t.Errorf("attributes = %v", r.Attributes)
	}
	if r.Links == nil || r.Links.Self != "/api/v1/hsds/service/s1" {
		t.Errorf("links = %+v", r.Links)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     Error
		status  int
		code    string
		pointer string
	}{
		{"bad request", ErrBadRequest("x"), 400, "bad_request", ""},
		{"unknown type", ErrUnknownType("bogus"), 400, "unknown_type", ""},
		{"validation", ErrValidation("email", "email: has invalid format"), 400, "validation_error", "/data/attributes/email"},
		{"unauthorized", ErrUnauthorized(""), 401, "unauthorized", ""},
		{"not found", ErrNotFound(""), 404, "not_found", ""},
		{"internal", ErrInternal("Failed to publish data"), 500, "internal_error", ""},
		{"not implemented", ErrNotImplemented("DELETE operations not implemented"), 501, "not_implemented", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.status {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode(), tt.status)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			pointer := ""
			if tt.err.Source != nil {
				pointer = tt.err.Source.Pointer
			}
			if pointer != tt.pointer {
				t.Errorf("Pointer = %q, want %q", pointer, tt.pointer)
			}
		})
	}

	if d := ErrUnknownType("bogus").Detail; d != "Unknown table: bogus" {
		t.Errorf("unknown type detail = %q", d)
	}
	if ErrValidation("", "record-level").Source != nil {
		t.Error("record-level violation should have no source")
	}
}

func TestWriteError(t *testing.T) {
	t.Run("status from first error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, ErrValidation("name", "name: is required and cannot be empty"), ErrValidation("email", "email: has invalid format"))

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != ContentType {
			t.Errorf("Content-Type = %q", ct)
		}

		var doc Document
		if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(doc.Errors) != 2 {
			t.Errorf("len(errors) = %d, want 2", len(doc.Errors))
		}
	})

	t.Run("no errors is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()
	r := NewResource("organization", "org1").Attr("name", "Food Bank").Build()
	WriteCreated(w, r, Meta{"status": "created"}, "/api/v1/hsds/organization/org1")

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/api/v1/hsds/organization/org1" {
		t.Errorf("Location = %q", loc)
	}

	var body struct {
		Data Resource `json:"data"`
		Meta Meta     `json:"meta"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.ID != "org1" || body.Meta["status"] != "created" {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "{\"status\":\"healthy\"}\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}
