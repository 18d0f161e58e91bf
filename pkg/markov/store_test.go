package markov

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	_, s := setupTestDB(t)
	ctx, m := setupProseModel(t)

	if err := s.Save(ctx, "prose", m); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	exported, err := s.Load(ctx, "prose")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	restored := NewModel(nil)
	if err := restored.Import(ctx, exported, true); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}

	if !reflect.DeepEqual(m.Export(), restored.Export()) {
		t.Error("model loaded from the store differs from the original")
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()

	first := NewModel(nil)
	_ = first.Feed(ctx, strings.NewReader("a b c d e"))
	second := NewModel(nil)
	_ = second.Feed(ctx, strings.NewReader("x y z"))

	if err := s.Save(ctx, "m", first); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s.Save(ctx, "m", second); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rsg_chains").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected only the latest model's chain to remain, found %d", count)
	}

	exported, err := s.Load(ctx, "m")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !reflect.DeepEqual(exported.Vocabulary, second.Export().Vocabulary) {
		t.Errorf("unexpected vocabulary %+v", exported.Vocabulary)
	}
}

func TestStoreSharedVocabulary(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()

	a := NewModel(nil)
	_ = a.Feed(ctx, strings.NewReader("one fish two fish"))
	b := NewModel(nil)
	_ = b.Feed(ctx, strings.NewReader("red fish blue fish"))
	_ = s.Save(ctx, "a", a)
	_ = s.Save(ctx, "b", b)

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rsg_vocabulary WHERE token_text = 'fish'").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected one shared vocabulary entry for 'fish', found %d", count)
	}

	names, err := s.ModelNames(ctx)
	if err != nil {
		t.Fatalf("ModelNames() failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("ModelNames() = %v", names)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	_, s := setupTestDB(t)
	_, err := s.Load(context.Background(), "nonexistent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows for a missing model, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()

	keep := NewModel(nil)
	_ = keep.Feed(ctx, strings.NewReader("keep this data."))
	drop := NewModel(nil)
	_ = drop.Feed(ctx, strings.NewReader("delete this data."))
	_ = s.Save(ctx, "keep", keep)
	_ = s.Save(ctx, "drop", drop)

	if err := s.Remove(ctx, "drop"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if err := s.Remove(ctx, "never-existed"); err != nil {
		t.Errorf("removing a missing model must not fail: %v", err)
	}

	if _, err := s.Load(ctx, "drop"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected removed model to be gone, got %v", err)
	}
	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rsg_chains").Scan(&count)
	if count != keep.Stats().Links {
		t.Errorf("expected %d chains for the kept model, found %d", keep.Stats().Links, count)
	}
}

func TestStoreRemoveLogsOnlyCompletedRemoval(t *testing.T) {
	_, s := setupTestDB(t)
	var logs bytes.Buffer
	s.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	ctx := context.Background()
	m := NewModel(nil)
	_ = m.Feed(ctx, strings.NewReader("delete this data."))
	if err := s.Save(ctx, "drop", m); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Remove(cancelled, "drop"); err == nil {
		t.Fatal("expected Remove() to fail with a cancelled context")
	}
	if strings.Contains(logs.String(), "Model removed") {
		t.Errorf("a failed removal was logged as done: %q", logs.String())
	}
	if _, err := s.Load(ctx, "drop"); err != nil {
		t.Errorf("model must survive a failed removal: %v", err)
	}

	if err := s.Remove(ctx, "drop"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if !strings.Contains(logs.String(), "Model removed") {
		t.Errorf("completed removal not logged: %q", logs.String())
	}
}

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestDB(t)
	if err := SetupSchema(db); err != nil {
		t.Errorf("second SetupSchema() failed: %v", err)
	}
}
