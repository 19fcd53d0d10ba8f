package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rcliao/voice-memories/internal/model"
)

func newTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	dir := t.TempDir()
	x, err := NewSQLiteIndex(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() { x.Close() })
	return x
}

func publish(t *testing.T, x *SQLiteIndex, id, text string) {
	t.Helper()
	if err := x.Publish(context.Background(), model.Document{MemoryID: id, Text: text}); err != nil {
		t.Fatalf("publish %s: %v", id, err)
	}
}

func TestPublishAndQuery(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	publish(t, x, "m1", "A cat sat on the mat")
	publish(t, x, "m2", "The dog barked")
	publish(t, x, "m3", "Concatenate strings")

	ids, err := x.Query(ctx, "cat")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"m1", "m3"}) {
		t.Errorf("expected [m1 m3], got %v", ids)
	}

	// Case-insensitive in both directions.
	ids, _ = x.Query(ctx, "DOG")
	if !reflect.DeepEqual(ids, []string{"m2"}) {
		t.Errorf("expected [m2], got %v", ids)
	}
	ids, _ = x.Query(ctx, "a cat")
	if !reflect.DeepEqual(ids, []string{"m1"}) {
		t.Errorf("expected [m1], got %v", ids)
	}

	ids, _ = x.Query(ctx, "zebra")
	if len(ids) != 0 {
		t.Errorf("expected no results, got %v", ids)
	}
}

func TestQuery_Unicode(t *testing.T) {
	x := newTestIndex(t)
	publish(t, x, "m1", "Ça va très bien")

	ids, err := x.Query(context.Background(), "ÇA VA")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("expected 1 result, got %v", ids)
	}
}

func TestPublish_Upsert(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	publish(t, x, "m1", "first take")
	publish(t, x, "m1", "second take")

	if ids, _ := x.Query(ctx, "first"); len(ids) != 0 {
		t.Errorf("old transcript still matches: %v", ids)
	}
	if ids, _ := x.Query(ctx, "second"); !reflect.DeepEqual(ids, []string{"m1"}) {
		t.Errorf("expected [m1], got %v", ids)
	}

	all, err := x.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 document, got %d", len(all))
	}
}

func TestPublish_EmptyID(t *testing.T) {
	x := newTestIndex(t)
	err := x.Publish(context.Background(), model.Document{Text: "orphan"})
	if !errors.Is(err, model.ErrIndex) {
		t.Errorf("expected ErrIndex, got %v", err)
	}
}

func TestGetAndDelete(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := x.Publish(ctx, model.Document{MemoryID: "m1", Text: "hello", Thumbnail: "/tmp/m1.thumb", IndexedAt: at})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := x.Get(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "hello" || doc.Thumbnail != "/tmp/m1.thumb" {
		t.Errorf("unexpected document: %+v", doc)
	}
	if !doc.IndexedAt.Equal(at) {
		t.Errorf("expected indexed_at %v, got %v", at, doc.IndexedAt)
	}

	if err := x.Delete(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	if _, err := x.Get(ctx, "m1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again is fine.
	if err := x.Delete(ctx, "m1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	publish(t, x, "stale", "left over from before")

	n, err := x.Rebuild(ctx, []model.Document{
		{MemoryID: "m1", Text: "hello world"},
		{MemoryID: "m2", Text: "goodbye"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 documents, got %d", n)
	}

	if ids, _ := x.Query(ctx, "left over"); len(ids) != 0 {
		t.Errorf("stale document survived rebuild: %v", ids)
	}
	if ids, _ := x.Query(ctx, "hello"); !reflect.DeepEqual(ids, []string{"m1"}) {
		t.Errorf("expected [m1], got %v", ids)
	}

	st, err := x.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 2 {
		t.Errorf("expected 2 documents in stats, got %d", st.Documents)
	}
	if st.LastIndexed == "" {
		t.Error("expected last_indexed to be set")
	}
}

func TestQueryFuzzy(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	publish(t, x, "m1", "a cat sat")
	publish(t, x, "m2", "the dog")

	ids, err := x.QueryFuzzy(ctx, "CST")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"m1"}) {
		t.Errorf("expected [m1], got %v", ids)
	}

	ids, _ = Fuzzy{Index: x}.Query(ctx, "dg")
	if !reflect.DeepEqual(ids, []string{"m2"}) {
		t.Errorf("expected [m2], got %v", ids)
	}
}

func TestNewSQLiteIndex_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	x, err := NewSQLiteIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer x.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected index dir to exist: %v", err)
	}
}
