package postgres

import (
	"context"
	"drawboard-server/config"
	"drawboard-server/core"
	"drawboard-server/stores/storetest"
	"fmt"
	"os"
	"testing"
	"time"
)

var testDSN string

func TestMain(m *testing.M) {
	testDSN = os.Getenv("TEST_DATABASE_URL")
	if testDSN == "" {
		fmt.Println("Skipping postgres store tests: TEST_DATABASE_URL not set")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *pgStore {
	t.Helper()
	store, err := NewStore(testDSN, config.Default().DB)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	if err := store.db.Exec("TRUNCATE drawings, users RESTART IDENTITY CASCADE").Error; err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return setupTestDB(t)
	})
}

func TestUpdateDrawing_UsesClock(t *testing.T) {
	store := setupTestDB(t)
	store.now = func() time.Time { return time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	d, err := store.SaveDrawing(ctx, &core.NewDrawing{
		Name:      "clocked",
		Data:      "{}",
		CreatedAt: "2024-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("SaveDrawing() failed: %v", err)
	}

	updated, err := store.UpdateDrawing(ctx, d.ID, "new")
	if err != nil {
		t.Fatalf("UpdateDrawing() failed: %v", err)
	}

	got, err := store.GetDrawing(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDrawing() failed: %v", err)
	}
	if got.Data != "new" || got.UpdatedAt != "2024-06-01T08:30:00.000Z" || got.UpdatedAt != updated.UpdatedAt {
		t.Errorf("GetDrawing() = %+v", got)
	}
}
