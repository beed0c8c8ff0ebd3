package baseline

import (
	"context"
	"path/filepath"
	"testing"

	"baize/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	return store
}

func TestSQLiteStore_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	has, err := store.Has(ctx)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if has {
		t.Error("fresh store must have no baseline")
	}

	items := []models.PersistenceItem{
		{Identifier: "com.x.a", Name: "a", Category: models.CategoryLaunchAgent},
		{Identifier: "com.x.b", Name: "b", Category: models.CategoryLaunchDaemon},
	}
	if err := store.Create(ctx, items); err != nil {
		t.Fatalf("Create: %v", err)
	}
	has, _ = store.Has(ctx)
	if !has {
		t.Error("Has = false after Create")
	}

	agents, err := store.Get(ctx, models.CategoryLaunchAgent)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(agents) != 1 || agents[0].Identifier != "com.x.a" {
		t.Errorf("agents = %+v", agents)
	}

	// overwrite one category; the other must be untouched
	if err := store.Update(ctx, models.CategoryLaunchAgent, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	agents, _ = store.Get(ctx, models.CategoryLaunchAgent)
	if len(agents) != 0 {
		t.Errorf("agents after overwrite = %+v, want empty", agents)
	}
	daemons, _ := store.Get(ctx, models.CategoryLaunchDaemon)
	if len(daemons) != 1 {
		t.Errorf("daemons = %+v, want 1 item", daemons)
	}
}

func TestSQLiteStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.Create(ctx, []models.PersistenceItem{{Identifier: "x", Category: models.CategoryCronJob}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if has, _ := store.Has(ctx); has {
		t.Error("Has = true after Reset")
	}
	if _, err := store.Get(ctx, models.CategoryCronJob); err != ErrNoBaseline {
		t.Errorf("Get after Reset: err = %v, want ErrNoBaseline", err)
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if _, err := store.Get(ctx, models.CategoryLaunchAgent); err != ErrNoBaseline {
		t.Errorf("empty store Get: err = %v, want ErrNoBaseline", err)
	}
	if err := store.Update(ctx, models.CategoryLaunchAgent, []models.PersistenceItem{{Identifier: "a"}}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, models.CategoryLaunchAgent)
	if err != nil || len(got) != 1 {
		t.Errorf("Get = %v, %v", got, err)
	}
}
