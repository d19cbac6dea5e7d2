package memory

import (
	"context"
	"testing"

	"github.com/kazz187/devguild/internal/config"
	"github.com/kazz187/devguild/pkg/cerr"
	"github.com/kazz187/devguild/pkg/storage"
)

func newTestStore(t *testing.T) (*Store, storage.Storage) {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	store, err := NewStore(context.Background(), config.MemoryConfig{ShortCapacity: 100, ShortTTLSeconds: 3600}, st)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, st
}

func TestRecallShortTierFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	store.RememberShort("k", "short value")
	if err := store.RememberLong(ctx, "k", "long value"); err != nil {
		t.Fatalf("RememberLong: %v", err)
	}

	item, err := store.Recall(ctx, "k", "")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if item.Tier != TierShort || item.Value != "short value" {
		t.Errorf("Recall = %+v, want short tier", item)
	}

	item, err = store.Recall(ctx, "k", TierLong)
	if err != nil {
		t.Fatalf("Recall long: %v", err)
	}
	if item.Tier != TierLong || item.Value != "long value" {
		t.Errorf("Recall long = %+v", item)
	}
}

func TestRecallNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Recall(context.Background(), "nope", "")
	if !cerr.IsCode(err, cerr.NotFound) {
		t.Errorf("Recall error = %v, want not_found", err)
	}
}

func TestForgetBothTiers(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	store.RememberShort("k", "v")
	if err := store.RememberLong(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}

	had, err := store.Forget(ctx, "k", "")
	if err != nil || !had {
		t.Fatalf("Forget = %v, %v", had, err)
	}
	if _, err := store.Recall(ctx, "k", ""); err == nil {
		t.Error("key should be gone from both tiers")
	}

	had, err = store.Forget(ctx, "k", "")
	if err != nil || had {
		t.Errorf("second Forget = %v, %v, want false, nil", had, err)
	}
}

func TestForgetSingleTier(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	store.RememberShort("k", "cached")
	if err := store.RememberLong(ctx, "k", "archived"); err != nil {
		t.Fatal(err)
	}

	had, err := store.Forget(ctx, "k", TierShort)
	if err != nil || !had {
		t.Fatalf("Forget short = %v, %v", had, err)
	}
	item, err := store.Recall(ctx, "k", "")
	if err != nil {
		t.Fatalf("long-term record must survive a short-tier forget: %v", err)
	}
	if item.Tier != TierLong || item.Value != "archived" {
		t.Errorf("Recall after short forget = %+v", item)
	}

	had, err = store.Forget(ctx, "k", TierLong)
	if err != nil || !had {
		t.Fatalf("Forget long = %v, %v", had, err)
	}
	if _, err := store.Recall(ctx, "k", ""); !cerr.IsCode(err, cerr.NotFound) {
		t.Errorf("Recall after both forgotten = %v, want not_found", err)
	}
}

func TestLongTermPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	store, st := newTestStore(t)

	if err := store.RememberLong(ctx, "task:123", "implemented the parser"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(ctx, config.MemoryConfig{ShortCapacity: 100, ShortTTLSeconds: 3600}, st)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	item, err := reopened.Recall(ctx, "task:123", "")
	if err != nil {
		t.Fatalf("Recall after reopen: %v", err)
	}
	if item.Tier != TierLong || item.Value != "implemented the parser" {
		t.Errorf("Recall = %+v", item)
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	records := map[string]string{
		"task:1": "built a json parser for configuration files",
		"task:2": "fixed the http server shutdown race",
		"task:3": "extended the json parser with streaming support",
	}
	for k, v := range records {
		if err := store.RememberLong(ctx, k, v); err != nil {
			t.Fatal(err)
		}
	}

	hits := store.Search("json parser", 10)
	if len(hits) < 2 {
		t.Fatalf("Search returned %d hits, want at least 2", len(hits))
	}
	for _, hit := range hits[:2] {
		if hit.Key != "task:1" && hit.Key != "task:3" {
			t.Errorf("unexpected top hit %q", hit.Key)
		}
	}
	if hits[0].Score < hits[len(hits)-1].Score {
		t.Error("hits are not sorted by score")
	}

	if got := store.Search("json parser", 1); len(got) != 1 {
		t.Errorf("limit not applied: %d hits", len(got))
	}
	if got := store.Search("", 10); got != nil {
		t.Errorf("empty query should return nil, got %v", got)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	store.RememberShort("a", "1")
	store.RememberShort("b", "2")
	if err := store.RememberLong(ctx, "c", "3"); err != nil {
		t.Fatal(err)
	}

	stats := store.Stats()
	if stats.ShortCount != 2 || stats.LongCount != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}
