// Package storetest holds the behaviour every drawing store must share.
// Backends call Run from their own tests.
package storetest

import (
	"context"
	"drawboard-server/core"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
)

type Store interface {
	core.UserStore
	core.DrawingStore
}

// Run executes the contract suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"CreateUser", testCreateUser},
		{"CreateUserDuplicate", testCreateUserDuplicate},
		{"GetUserNotFound", testGetUserNotFound},
		{"SaveAndGetDrawing", testSaveAndGetDrawing},
		{"SaveDrawingFillsTimestamps", testSaveDrawingFillsTimestamps},
		{"SaveDrawingUnknownUser", testSaveDrawingUnknownUser},
		{"OpaqueData", testOpaqueData},
		{"GetDrawingNotFound", testGetDrawingNotFound},
		{"GetDrawingsByUserID", testGetDrawingsByUserID},
		{"UpdateDrawing", testUpdateDrawing},
		{"UpdateDrawingNotFound", testUpdateDrawingNotFound},
		{"UpdateDrawingSubMillisecondCreatedAt", testUpdateDrawingSubMillisecondCreatedAt},
		{"GetAllDrawings", testGetAllDrawings},
		{"ReturnedRecordsAreCopies", testReturnedRecordsAreCopies},
		{"ConcurrentSaves", testConcurrentSaves},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func mustCreateUser(t *testing.T, s Store, username string) *core.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &core.NewUser{Username: username, Password: "pw-" + username})
	if err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", username, err)
	}
	return u
}

func mustSave(t *testing.T, s Store, d *core.NewDrawing) *core.Drawing {
	t.Helper()
	saved, err := s.SaveDrawing(context.Background(), d)
	if err != nil {
		t.Fatalf("SaveDrawing() failed: %v", err)
	}
	return saved
}

func stamped(name, data string) *core.NewDrawing {
	return &core.NewDrawing{
		Name:      name,
		Data:      data,
		CreatedAt: "2024-01-01T00:00:00Z",
		UpdatedAt: "2024-01-01T00:00:00Z",
	}
}

func testCreateUser(t *testing.T, s Store) {
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	if alice.ID <= 0 || bob.ID <= alice.ID {
		t.Errorf("user ids not increasing: alice=%d bob=%d", alice.ID, bob.ID)
	}
	if alice.PasswordHash == "" || alice.PasswordHash == "pw-alice" {
		t.Errorf("password stored in plaintext or missing: %q", alice.PasswordHash)
	}

	got, err := s.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if got.Username != "alice" || !got.CheckPassword("pw-alice") {
		t.Errorf("GetUser() = %+v", got)
	}

	got, err = s.GetUserByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if got.ID != bob.ID {
		t.Errorf("GetUserByUsername() id = %d, want %d", got.ID, bob.ID)
	}
}

func testCreateUserDuplicate(t *testing.T, s Store) {
	mustCreateUser(t, s, "carol")

	_, err := s.CreateUser(context.Background(), &core.NewUser{Username: "carol", Password: "other"})
	if !errors.Is(err, core.ErrUsernameTaken) {
		t.Fatalf("duplicate CreateUser() error = %v, want ErrUsernameTaken", err)
	}

	u, err := s.GetUserByUsername(context.Background(), "carol")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !u.CheckPassword("pw-carol") {
		t.Error("duplicate CreateUser() replaced the original password")
	}
}

func testGetUserNotFound(t *testing.T, s Store) {
	ctx := context.Background()
	if _, err := s.GetUser(ctx, 4242); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetUser() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetUserByUsername() error = %v, want ErrNotFound", err)
	}
}

func testSaveAndGetDrawing(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustCreateUser(t, s, "dora")

	nd := stamped("Untitled Drawing", `{"shapes":[]}`)
	nd.UserID = &owner.ID
	first := mustSave(t, s, nd)
	second := mustSave(t, s, stamped("Second", `{}`))

	if first.ID <= 0 || second.ID <= first.ID {
		t.Errorf("drawing ids not increasing: %d then %d", first.ID, second.ID)
	}
	if first.Name != "Untitled Drawing" || first.Data != `{"shapes":[]}` {
		t.Errorf("SaveDrawing() = %+v", first)
	}
	if first.CreatedAt != "2024-01-01T00:00:00Z" || first.UpdatedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("client timestamps not kept: %q %q", first.CreatedAt, first.UpdatedAt)
	}
	if first.UserID == nil || *first.UserID != owner.ID {
		t.Errorf("UserID = %v, want %d", first.UserID, owner.ID)
	}
	if second.UserID != nil {
		t.Errorf("ownerless drawing got UserID %d", *second.UserID)
	}

	for _, want := range []*core.Drawing{first, second} {
		got, err := s.GetDrawing(ctx, want.ID)
		if err != nil {
			t.Fatalf("GetDrawing(%d) failed: %v", want.ID, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetDrawing(%d) = %+v, want %+v", want.ID, got, want)
		}
	}
}

func testSaveDrawingFillsTimestamps(t *testing.T, s Store) {
	d := mustSave(t, s, &core.NewDrawing{Name: "n", Data: "d"})

	created, err := core.ParseTimestamp(d.CreatedAt)
	if err != nil {
		t.Fatalf("createdAt %q is not a timestamp: %v", d.CreatedAt, err)
	}
	if d.UpdatedAt != d.CreatedAt {
		t.Errorf("updatedAt = %q, want createdAt %q", d.UpdatedAt, d.CreatedAt)
	}
	if created.IsZero() {
		t.Error("createdAt is zero")
	}
}

func testSaveDrawingUnknownUser(t *testing.T, s Store) {
	ghost := int64(9999)
	nd := stamped("orphan", "{}")
	nd.UserID = &ghost

	_, err := s.SaveDrawing(context.Background(), nd)
	if !errors.Is(err, core.ErrUnknownUser) {
		t.Fatalf("SaveDrawing() error = %v, want ErrUnknownUser", err)
	}

	all, err := s.GetAllDrawings(context.Background())
	if err != nil {
		t.Fatalf("GetAllDrawings() failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("failed save left %d drawings behind", len(all))
	}
}

func testOpaqueData(t *testing.T, s Store) {
	payloads := []string{
		"",
		"not json at all",
		`{"unterminated":`,
		`{"text":"Hello 世界 🌍"}`,
		"line1\nline2\t'quoted' \"double\"; DROP TABLE drawings; --",
		strings.Repeat("x", 1<<20),
	}

	for i, data := range payloads {
		saved := mustSave(t, s, stamped(fmt.Sprintf("payload-%d", i), data))
		got, err := s.GetDrawing(context.Background(), saved.ID)
		if err != nil {
			t.Fatalf("GetDrawing() failed: %v", err)
		}
		if got.Data != data {
			t.Errorf("payload %d changed in storage (len %d -> %d)", i, len(data), len(got.Data))
		}
	}
}

func testGetDrawingNotFound(t *testing.T, s Store) {
	_, err := s.GetDrawing(context.Background(), 999)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetDrawing() error = %v, want ErrNotFound", err)
	}
}

func testGetDrawingsByUserID(t *testing.T, s Store) {
	ctx := context.Background()
	u1 := mustCreateUser(t, s, "erin")
	u2 := mustCreateUser(t, s, "finn")

	var want []int64
	for i := 0; i < 6; i++ {
		nd := stamped(fmt.Sprintf("d%d", i), "{}")
		switch i % 3 {
		case 0:
			nd.UserID = &u1.ID
		case 1:
			nd.UserID = &u2.ID
		}
		d := mustSave(t, s, nd)
		if i%3 == 0 {
			want = append(want, d.ID)
		}
	}

	got, err := s.GetDrawingsByUserID(ctx, u1.ID)
	if err != nil {
		t.Fatalf("GetDrawingsByUserID() failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("GetDrawingsByUserID() returned %d drawings, want %d", len(got), len(want))
	}
	for i, d := range got {
		if d.ID != want[i] || d.UserID == nil || *d.UserID != u1.ID {
			t.Errorf("drawing %d = %+v, want id %d owned by %d", i, d, want[i], u1.ID)
		}
	}

	none, err := s.GetDrawingsByUserID(ctx, 31337)
	if err != nil {
		t.Fatalf("GetDrawingsByUserID() failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("GetDrawingsByUserID() for unknown user = %#v, want empty slice", none)
	}
}

func testUpdateDrawing(t *testing.T, s Store) {
	ctx := context.Background()
	orig := mustSave(t, s, stamped("u", `{"shapes":[]}`))

	updated, err := s.UpdateDrawing(ctx, orig.ID, `{"shapes":[1]}`)
	if err != nil {
		t.Fatalf("UpdateDrawing() failed: %v", err)
	}
	if updated.Data != `{"shapes":[1]}` {
		t.Errorf("Data = %q", updated.Data)
	}
	if updated.Name != orig.Name || updated.CreatedAt != orig.CreatedAt || updated.ID != orig.ID {
		t.Errorf("UpdateDrawing() changed more than data: %+v", updated)
	}

	before, _ := core.ParseTimestamp(orig.UpdatedAt)
	after, err := core.ParseTimestamp(updated.UpdatedAt)
	if err != nil {
		t.Fatalf("updatedAt %q is not a timestamp: %v", updated.UpdatedAt, err)
	}
	if after.Before(before) {
		t.Errorf("updatedAt moved backwards: %s -> %s", orig.UpdatedAt, updated.UpdatedAt)
	}

	got, err := s.GetDrawing(ctx, orig.ID)
	if err != nil {
		t.Fatalf("GetDrawing() failed: %v", err)
	}
	if !reflect.DeepEqual(got, updated) {
		t.Errorf("GetDrawing() = %+v, want %+v", got, updated)
	}
}

func testUpdateDrawingSubMillisecondCreatedAt(t *testing.T, s Store) {
	ctx := context.Background()
	orig := mustSave(t, s, &core.NewDrawing{
		Name:      "fine",
		Data:      "{}",
		CreatedAt: "2030-01-01T00:00:00.0009Z",
	})

	updated, err := s.UpdateDrawing(ctx, orig.ID, `{"v":2}`)
	if err != nil {
		t.Fatalf("UpdateDrawing() failed: %v", err)
	}
	created, err := core.ParseTimestamp(updated.CreatedAt)
	if err != nil {
		t.Fatalf("createdAt %q is not a timestamp: %v", updated.CreatedAt, err)
	}
	after, err := core.ParseTimestamp(updated.UpdatedAt)
	if err != nil {
		t.Fatalf("updatedAt %q is not a timestamp: %v", updated.UpdatedAt, err)
	}
	if after.Before(created) {
		t.Errorf("updatedAt %s is before createdAt %s", updated.UpdatedAt, updated.CreatedAt)
	}
}

func testUpdateDrawingNotFound(t *testing.T, s Store) {
	ctx := context.Background()
	existing := mustSave(t, s, stamped("keep", "original"))

	_, err := s.UpdateDrawing(ctx, existing.ID+100, "new")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("UpdateDrawing() error = %v, want ErrNotFound", err)
	}

	all, err := s.GetAllDrawings(ctx)
	if err != nil {
		t.Fatalf("GetAllDrawings() failed: %v", err)
	}
	if len(all) != 1 || !reflect.DeepEqual(all[0], existing) {
		t.Errorf("store mutated by failed update: %+v", all)
	}
}

func testGetAllDrawings(t *testing.T, s Store) {
	ctx := context.Background()

	empty, err := s.GetAllDrawings(ctx)
	if err != nil {
		t.Fatalf("GetAllDrawings() failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("GetAllDrawings() on empty store = %#v, want empty slice", empty)
	}

	ids := map[int64]bool{}
	for i := 0; i < 4; i++ {
		ids[mustSave(t, s, stamped(fmt.Sprintf("all-%d", i), "{}")).ID] = true
	}

	all, err := s.GetAllDrawings(ctx)
	if err != nil {
		t.Fatalf("GetAllDrawings() failed: %v", err)
	}
	if len(all) != len(ids) {
		t.Fatalf("GetAllDrawings() returned %d drawings, want %d", len(all), len(ids))
	}
	for _, d := range all {
		if !ids[d.ID] {
			t.Errorf("unexpected drawing %d", d.ID)
		}
	}
}

func testReturnedRecordsAreCopies(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "gus")
	owner := u.ID
	nd := stamped("copy", "data")
	nd.UserID = &owner

	saved := mustSave(t, s, nd)
	*nd.UserID = 12345
	saved.Name = "mutated"

	got, err := s.GetDrawing(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetDrawing() failed: %v", err)
	}
	if got.Name != "copy" || got.UserID == nil || *got.UserID != u.ID {
		t.Errorf("stored drawing changed through caller memory: %+v", got)
	}

	got.Data = "mutated"
	again, _ := s.GetDrawing(ctx, saved.ID)
	if again.Data != "data" {
		t.Errorf("stored drawing changed through returned record: %q", again.Data)
	}
}

func testConcurrentSaves(t *testing.T, s Store) {
	const workers = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := s.SaveDrawing(context.Background(), stamped(fmt.Sprintf("c%d", i), "{}"))
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[d.ID] {
				errs <- fmt.Errorf("id %d assigned twice", d.ID)
			}
			seen[d.ID] = true
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if len(seen) != workers {
		t.Errorf("got %d distinct ids, want %d", len(seen), workers)
	}
}
