package store

import (
	"context"
	"errors"
	"testing"
)

type testDoc struct {
	Area  string  `json:"area"`
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

func TestMemoryFindOne(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	docs := []testDoc{
		{Area: "county", Value: 4.1},
		{Area: "90001", Value: 3.9},
		{Area: "90001", Value: 1.0},
	}
	if err := m.InsertMany(ctx, "ratings", Docs(docs)); err != nil {
		t.Fatalf("InsertMany() error: %v", err)
	}

	var got testDoc
	if err := m.FindOne(ctx, "ratings", Filter{"area": "90001"}, &got); err != nil {
		t.Fatalf("FindOne() error: %v", err)
	}
	if got.Value != 3.9 {
		t.Errorf("FindOne() returned value %v, want first match 3.9", got.Value)
	}

	err := m.FindOne(ctx, "ratings", Filter{"area": "99999"}, &got)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOne() error = %v, want ErrNotFound", err)
	}

	err = m.FindOne(ctx, "missing", nil, &got)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOne() on empty collection error = %v, want ErrNotFound", err)
	}
}

func TestMemoryFindNumericFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.InsertMany(ctx, "c", Docs([]testDoc{{Area: "a", Value: 2}, {Area: "b", Value: 3}}))

	got, err := collect(ctx, m, "c", Filter{"value": 3}, FindOptions{})
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if len(got) != 1 || got[0].Area != "b" {
		t.Errorf("Find() = %+v, want only area b", got)
	}
}

func TestMemoryFindSorted(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.InsertMany(ctx, "heatmap", Docs([]testDoc{
		{Month: "2024-03", Value: 1},
		{Month: "2023-11", Value: 2},
		{Month: "2024-01", Value: 3},
	}))

	got, err := collect(ctx, m, "heatmap", nil, FindOptions{SortBy: "month"})
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	want := []string{"2023-11", "2024-01", "2024-03"}
	if len(got) != len(want) {
		t.Fatalf("Find() returned %d docs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Month != want[i] {
			t.Errorf("doc %d month = %q, want %q", i, got[i].Month, want[i])
		}
	}

	unsorted, _ := collect(ctx, m, "heatmap", nil, FindOptions{})
	if unsorted[0].Month != "2024-03" {
		t.Errorf("unsorted Find() should keep insertion order, got first %q", unsorted[0].Month)
	}
}

func TestMemoryReplaceAll(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.InsertMany(ctx, "scores", Docs([]testDoc{{Area: "old"}}))
	_ = m.InsertOne(ctx, "other", testDoc{Area: "untouched"})

	if err := m.ReplaceAll(ctx, "scores", Docs([]testDoc{{Area: "new1"}, {Area: "new2"}})); err != nil {
		t.Fatalf("ReplaceAll() error: %v", err)
	}

	got, _ := collect(ctx, m, "scores", nil, FindOptions{})
	if len(got) != 2 || got[0].Area != "new1" {
		t.Errorf("after ReplaceAll got %+v", got)
	}
	other, _ := collect(ctx, m, "other", nil, FindOptions{})
	if len(other) != 1 {
		t.Errorf("ReplaceAll touched another collection: %+v", other)
	}
}

func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Close()

	if err := m.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping() after Close error = %v, want ErrUnavailable", err)
	}
	if _, err := m.Find(ctx, "c", nil, FindOptions{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Find() after Close error = %v, want ErrUnavailable", err)
	}
}

func TestAllStopsOnCancelledContext(t *testing.T) {
	m := NewMemory()
	_ = m.InsertMany(context.Background(), "c", Docs([]testDoc{{Area: "a"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cur, err := m.Find(ctx, "c", nil, FindOptions{})
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	cancel()

	if _, err := All[testDoc](ctx, cur); !errors.Is(err, context.Canceled) {
		t.Errorf("All() error = %v, want context.Canceled", err)
	}
}

func collect(ctx context.Context, s Store, collection string, f Filter, opts FindOptions) ([]testDoc, error) {
	cur, err := s.Find(ctx, collection, f, opts)
	if err != nil {
		return nil, err
	}
	return All[testDoc](ctx, cur)
}
