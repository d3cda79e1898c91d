package client

import (
	"context"
	"drawboard-server/bridge"
	"drawboard-server/core"
	"drawboard-server/handlers/api/drawings"
	"drawboard-server/handlers/api/users"
	"drawboard-server/stores/memory"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

const testMaxBytes = 1 << 20

func newTestServer(t *testing.T) *Client {
	t.Helper()
	store := memory.NewStore()

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/drawings", drawings.HandleList(store))
		r.Post("/drawings", drawings.HandleCreate(store, testMaxBytes))
		r.Get("/drawings/{id}", drawings.HandleGet(store))
		r.Put("/drawings/{id}", drawings.HandleUpdate(store, testMaxBytes))
		r.Post("/users", users.HandleCreate(store, testMaxBytes))
		r.Get("/users/{userId}", users.HandleGet(store))
		r.Get("/users/{userId}/drawings", drawings.HandleListByUser(store))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client())
}

func TestClient_DrawingLifecycle(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	created, err := c.CreateDrawing(ctx, &core.NewDrawing{
		Name:      "Untitled Drawing",
		Data:      `{"shapes":[]}`,
		CreatedAt: "2024-01-01T00:00:00Z",
		UpdatedAt: "2024-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("CreateDrawing() failed: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("ID = %d, want 1", created.ID)
	}

	got, err := c.GetDrawing(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetDrawing() failed: %v", err)
	}
	if *got != *created {
		t.Errorf("GetDrawing() = %+v, want %+v", got, created)
	}

	updated, err := c.UpdateDrawing(ctx, created.ID, `{"shapes":[1]}`)
	if err != nil {
		t.Fatalf("UpdateDrawing() failed: %v", err)
	}
	if updated.Data != `{"shapes":[1]}` || updated.UpdatedAt == created.UpdatedAt {
		t.Errorf("UpdateDrawing() = %+v", updated)
	}

	list, err := c.ListDrawings(ctx)
	if err != nil {
		t.Fatalf("ListDrawings() failed: %v", err)
	}
	if len(list) != 1 || list[0].Data != updated.Data {
		t.Errorf("ListDrawings() = %+v", list)
	}
}

func TestClient_APIErrors(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	_, err := c.GetDrawing(ctx, 999)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("GetDrawing() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "Drawing not found" {
		t.Errorf("APIError = %+v", apiErr)
	}

	_, err = c.CreateDrawing(ctx, &core.NewDrawing{Data: "{}"})
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "name is required" {
		t.Errorf("CreateDrawing() error = %v", err)
	}

	_, err = c.UpdateDrawing(ctx, 999, "x")
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("UpdateDrawing() error = %v", err)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).ListDrawings(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "Bad Gateway" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_Users(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	u, err := c.CreateUser(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	_, err = c.CreateUser(ctx, "ada", "other")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Errorf("duplicate CreateUser() error = %v", err)
	}

	got, err := c.GetUser(ctx, u.ID)
	if err != nil || got.Username != "ada" {
		t.Fatalf("GetUser() = %+v, %v", got, err)
	}

	owner := u.ID
	for _, name := range []string{"first", "second"} {
		if _, err := c.CreateDrawing(ctx, &core.NewDrawing{UserID: &owner, Name: name, Data: "{}"}); err != nil {
			t.Fatalf("CreateDrawing() failed: %v", err)
		}
	}
	if _, err := c.CreateDrawing(ctx, &core.NewDrawing{Name: "unowned", Data: "{}"}); err != nil {
		t.Fatalf("CreateDrawing() failed: %v", err)
	}

	mine, err := c.ListUserDrawings(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListUserDrawings() failed: %v", err)
	}
	if len(mine) != 2 || mine[0].Name != "first" || mine[1].Name != "second" {
		t.Errorf("ListUserDrawings() = %+v", mine)
	}
}

func TestSession_SaveAndReopen(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	doc := bridge.NewDocument()
	s := NewSession(c, doc)
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	if s.Status() != "Ready" {
		t.Errorf("Status() = %q", s.Status())
	}

	if err := doc.Put("shape:a", map[string]any{"id": "shape:a", "type": "geo"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	first := s.Current()
	if s.Status() != "Saved" || first == nil || first.Name != bridge.DefaultName {
		t.Fatalf("after first Save: status %q, current %+v", s.Status(), first)
	}

	if err := doc.Put("shape:b", map[string]any{"id": "shape:b", "type": "text"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if s.Current().ID != first.ID {
		t.Errorf("second Save created drawing %d, want update of %d", s.Current().ID, first.ID)
	}

	fresh := bridge.NewDocument()
	other := NewSession(c, fresh)
	if err := other.Open(ctx, first.ID); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if other.Status() != "Loaded "+bridge.DefaultName || fresh.Len() != 2 {
		t.Errorf("Open(): status %q, %d records", other.Status(), fresh.Len())
	}
}

func TestSession_New(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	doc := bridge.NewDocument()
	if err := doc.Put("shape:old", map[string]any{"id": "shape:old"}); err != nil {
		t.Fatal(err)
	}

	s := NewSession(c, doc)
	if err := s.New(ctx, "Sketch"); err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if s.Status() != "Created Sketch" {
		t.Errorf("Status() = %q", s.Status())
	}
	if doc.Len() != 0 {
		t.Errorf("New() left %d records in the editor", doc.Len())
	}
	if cur := s.Current(); cur == nil || cur.Name != "Sketch" {
		t.Errorf("Current() = %+v", cur)
	}
}

func TestSession_OpenLatest(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	s := NewSession(c, bridge.NewDocument())
	if err := s.OpenLatest(ctx); err != nil {
		t.Fatalf("OpenLatest() failed: %v", err)
	}
	if s.Status() != "No saved drawings" || s.Current() != nil {
		t.Errorf("empty OpenLatest(): status %q, current %+v", s.Status(), s.Current())
	}

	for _, tc := range []struct{ name, stamp string }{
		{"old", "2024-01-01T00:00:00Z"},
		{"newest", "2024-03-01T00:00:00Z"},
		{"middle", "2024-02-01T00:00:00Z"},
	} {
		nd, err := bridge.NewDrawing(bridge.NewDocument(), tc.name, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		nd.CreatedAt, nd.UpdatedAt = tc.stamp, tc.stamp
		if _, err := c.CreateDrawing(ctx, nd); err != nil {
			t.Fatalf("CreateDrawing() failed: %v", err)
		}
	}

	if err := s.OpenLatest(ctx); err != nil {
		t.Fatalf("OpenLatest() failed: %v", err)
	}
	if s.Status() != "Loaded newest" {
		t.Errorf("Status() = %q, want Loaded newest", s.Status())
	}
}

func TestSession_Failures(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	doc := bridge.NewDocument()
	if err := doc.Put("shape:keep", map[string]any{"id": "shape:keep"}); err != nil {
		t.Fatal(err)
	}
	s := NewSession(c, doc)

	if err := s.Open(ctx, 42); err == nil {
		t.Error("Open() of a missing drawing should fail")
	}
	if s.Status() != "Failed to load drawing" {
		t.Errorf("Status() = %q", s.Status())
	}

	bad, err := c.CreateDrawing(ctx, &core.NewDrawing{Name: "corrupt", Data: "not json"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Open(ctx, bad.ID); !errors.Is(err, ErrUnloadable) {
		t.Errorf("Open() error = %v, want ErrUnloadable", err)
	}
	if s.Status() != "Failed to load drawing" || doc.Len() != 1 || s.Current() != nil {
		t.Errorf("after unloadable Open: status %q, %d records, current %+v", s.Status(), doc.Len(), s.Current())
	}

	down := NewSession(New("http://127.0.0.1:1", nil), doc)
	if err := down.Save(ctx); err == nil {
		t.Error("Save() against an unreachable server should fail")
	}
	if down.Status() != "Failed to save drawing" {
		t.Errorf("Status() = %q", down.Status())
	}
}

func TestSession_NewFailureKeepsEditor(t *testing.T) {
	ctx := context.Background()

	doc := bridge.NewDocument()
	if err := doc.Put("shape:unsaved", map[string]any{"id": "shape:unsaved"}); err != nil {
		t.Fatal(err)
	}
	before, err := bridge.Serialize(doc)
	if err != nil {
		t.Fatal(err)
	}

	down := NewSession(New("http://127.0.0.1:1", nil), doc)
	if err := down.New(ctx, "Sketch"); err == nil {
		t.Fatal("New() against an unreachable server should fail")
	}
	if down.Status() != "Failed to create drawing" {
		t.Errorf("Status() = %q", down.Status())
	}
	if down.Current() != nil {
		t.Errorf("Current() = %+v, want nil", down.Current())
	}
	after, err := bridge.Serialize(doc)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 1 || after != before {
		t.Errorf("failed New() changed the editor: %d records, %s", doc.Len(), after)
	}
}
