package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. Documents are kept in their encoded form so
// readers never share state with writers.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]json.RawMessage
	closed      bool
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]json.RawMessage)}
}

func (m *Memory) InsertOne(ctx context.Context, collection string, doc any) error {
	return m.InsertMany(ctx, collection, []any{doc})
}

func (m *Memory) InsertMany(_ context.Context, collection string, docs []any) error {
	encoded, err := encodeAll(docs)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrUnavailable
	}
	m.collections[collection] = append(m.collections[collection], encoded...)
	return nil
}

func (m *Memory) ReplaceAll(_ context.Context, collection string, docs []any) error {
	encoded, err := encodeAll(docs)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrUnavailable
	}
	m.collections[collection] = encoded
	return nil
}

func (m *Memory) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	matches, err := m.match(collection, filter, "")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(matches[0], out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func (m *Memory) Find(_ context.Context, collection string, filter Filter, opts FindOptions) (Cursor, error) {
	matches, err := m.match(collection, filter, opts.SortBy)
	if err != nil {
		return nil, err
	}
	return &memoryCursor{docs: matches, pos: -1}, nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrUnavailable
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) match(collection string, filter Filter, sortBy string) ([]json.RawMessage, error) {
	want, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrUnavailable
	}
	docs := m.collections[collection]
	m.mu.RUnlock()

	type candidate struct {
		raw    json.RawMessage
		fields map[string]any
	}
	var matched []candidate
	for _, raw := range docs {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		ok := true
		for k, v := range want {
			if !reflect.DeepEqual(fields[k], v) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, candidate{raw: raw, fields: fields})
		}
	}

	if sortBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			return lessValue(matched[i].fields[sortBy], matched[j].fields[sortBy])
		})
	}

	out := make([]json.RawMessage, len(matched))
	for i, c := range matched {
		out[i] = c.raw
	}
	return out, nil
}

// normalizeFilter round-trips filter values through JSON so they compare
// equal to decoded document fields.
func normalizeFilter(filter Filter) (map[string]any, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	return out, nil
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case nil:
		return b != nil
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

type memoryCursor struct {
	docs []json.RawMessage
	pos  int
	err  error
}

func (c *memoryCursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos+1 >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *memoryCursor) Decode(out any) error {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return fmt.Errorf("decode document: cursor not positioned")
	}
	if err := json.Unmarshal(c.docs[c.pos], out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func (c *memoryCursor) Err() error { return c.err }

func (c *memoryCursor) Close() error { return nil }
