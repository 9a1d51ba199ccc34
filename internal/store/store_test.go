package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/tripgenie/internal/segment"
	"github.com/dgallion1/tripgenie/internal/travel"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "plans.db"), 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePlan(id string, created time.Time) *Plan {
	req := travel.Request{Source: "Boston", Destination: "Lisbon", StartDate: "2026-05-01", EndDate: "2026-05-06", Budget: "$3000", Travelers: "2"}
	return &Plan{
		ID:          id,
		RequestHash: req.Hash(),
		Request:     req,
		Model:       "gemini-test",
		RawText:     "1. Lodging\nStay in Alfama.",
		Strategy:    segment.StrategyHeaders,
		Sections:    []segment.Section{{Title: "Lodging", Content: "Stay in Alfama."}},
		CreatedAt:   created.UTC(),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	want := samplePlan("p1", time.Unix(1_700_000_000, 123).UTC())

	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	// Second read comes from the cache and must be identical.
	again, err := s.Get(ctx, "p1")
	if err != nil || again != got {
		t.Errorf("expected cached plan, got %p (%v)", again, err)
	}
}

func TestGetMissing(t *testing.T) {
	s := tempStore(t)
	p, err := s.Get(context.Background(), "nope")
	if err != nil || p != nil {
		t.Fatalf("expected nil, nil; got %v, %v", p, err)
	}
}

func TestPutReplacesAndInvalidatesCache(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	p := samplePlan("p1", time.Now())
	if err := s.Put(ctx, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(ctx, "p1"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	updated := samplePlan("p1", p.CreatedAt)
	updated.Sections = nil
	updated.Strategy = segment.StrategyNone
	if err := s.Put(ctx, updated); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Strategy != segment.StrategyNone || len(got.Sections) != 0 || got.Sections == nil {
		t.Errorf("expected replaced plan with empty sections, got %+v", got)
	}
}

func TestFindByRequestHashReturnsNewest(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	base := time.Now()
	old := samplePlan("old", base.Add(-time.Hour))
	newer := samplePlan("new", base)
	for _, p := range []*Plan{old, newer} {
		if err := s.Put(ctx, p); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := s.FindByRequestHash(ctx, old.RequestHash)
	if err != nil {
		t.Fatalf("FindByRequestHash: %v", err)
	}
	if got == nil || got.ID != "new" {
		t.Fatalf("expected newest plan, got %+v", got)
	}

	none, err := s.FindByRequestHash(ctx, "missing")
	if err != nil || none != nil {
		t.Fatalf("expected nil, nil; got %v, %v", none, err)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, samplePlan(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	plans, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, p := range plans {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("list order mismatch (-want +got):\n%s", diff)
	}
}

func TestListEmpty(t *testing.T) {
	plans, err := tempStore(t).List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if plans == nil || len(plans) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", plans)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, samplePlan("p1", time.Now())); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(ctx, "p1"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	removed, err := s.Delete(ctx, "p1")
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v, %v", removed, err)
	}
	if p, _ := s.Get(ctx, "p1"); p != nil {
		t.Error("expected deleted plan to be gone from cache and db")
	}
	removed, err = s.Delete(ctx, "p1")
	if err != nil || removed {
		t.Fatalf("expected no-op delete, got %v, %v", removed, err)
	}
}

func TestPutRequiresID(t *testing.T) {
	if err := tempStore(t).Put(context.Background(), &Plan{}); err == nil {
		t.Fatal("expected error for missing id")
	}
}
