package respond

import (
	"context"
	"drawboard-server/core"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type payload struct {
	Name   string  `json:"name" validate:"required"`
	Data   *string `json:"data" validate:"required"`
	UserID *int64  `json:"userId" validate:"omitempty,gt=0"`
	When   string  `json:"when" validate:"omitempty,timestamp"`
	Secret string  `json:"-"`
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var msg Message
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return msg.Message
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		limit      int64
		wantOK     bool
		wantStatus int
		wantMsg    string
	}{
		{"valid", `{"name":"a","data":""}`, 1024, true, 0, ""},
		{"valid with optionals", `{"name":"a","data":"x","userId":3,"when":"2024-01-01T00:00:00.123Z"}`, 1024, true, 0, ""},
		{"malformed", `{"name":`, 1024, false, http.StatusBadRequest, "Invalid request body"},
		{"empty body", ``, 1024, false, http.StatusBadRequest, "Invalid request body"},
		{"missing name", `{"data":"x"}`, 1024, false, http.StatusBadRequest, "name is required"},
		{"missing both", `{}`, 1024, false, http.StatusBadRequest, "name is required; data is required"},
		{"bad user id", `{"name":"a","data":"x","userId":0}`, 1024, false, http.StatusBadRequest, "userId must be greater than 0"},
		{"bad timestamp", `{"name":"a","data":"x","when":"yesterday"}`, 1024, false, http.StatusBadRequest, "when must be an RFC 3339 timestamp"},
		{"too large", `{"name":"a","data":"` + strings.Repeat("x", 64) + `"}`, 16, false, http.StatusRequestEntityTooLarge, "Request body too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			var p payload
			ok := DecodeJSON(rec, req, tt.limit, &p)
			if ok != tt.wantOK {
				t.Fatalf("DecodeJSON() = %v, want %v (body %s)", ok, tt.wantOK, rec.Body.String())
			}
			if ok {
				return
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeMessage(t, rec); got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"abc", 0, true},
		{"1.5", 0, true},
		{"12abc", 0, true},
		{"", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.raw)
			req = req.WithContext(contextWithRoute(req, rctx))

			got, err := ParseID(req, "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{fmt.Errorf("drawing 3: %w", core.ErrNotFound), http.StatusNotFound, "Drawing not found"},
		{fmt.Errorf("create user: %w", core.ErrUsernameTaken), http.StatusConflict, "Username already exists"},
		{fmt.Errorf("save: %w", core.ErrUnknownUser), http.StatusBadRequest, "userId does not reference an existing user"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "Failed to retrieve drawing"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/drawings/3", nil)
			rec := httptest.NewRecorder()

			StoreError(rec, req, tt.err, "Drawing not found", "Failed to retrieve drawing")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeMessage(t, rec); got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}
