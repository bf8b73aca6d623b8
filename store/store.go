// Package store persists view documents in named collections.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("store unavailable")
)

// Filter matches documents whose top-level fields equal the given values.
type Filter map[string]any

type FindOptions struct {
	// SortBy orders results ascending by a top-level document field. Empty
	// keeps insertion order.
	SortBy string
}

// Cursor walks a result set lazily.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(out any) error
	Err() error
	Close() error
}

type Store interface {
	InsertOne(ctx context.Context, collection string, doc any) error
	InsertMany(ctx context.Context, collection string, docs []any) error
	// ReplaceAll swaps the whole content of a collection for docs.
	ReplaceAll(ctx context.Context, collection string, docs []any) error
	FindOne(ctx context.Context, collection string, filter Filter, out any) error
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) (Cursor, error)
	Ping(ctx context.Context) error
	Close() error
}

// All drains cur into a slice and closes it.
func All[T any](ctx context.Context, cur Cursor) ([]T, error) {
	defer cur.Close()

	var out []T
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Docs converts a typed slice for InsertMany and ReplaceAll.
func Docs[T any](items []T) []any {
	docs := make([]any, len(items))
	for i := range items {
		docs[i] = items[i]
	}
	return docs
}

func encode(doc any) (json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

func encodeAll(docs []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		raw, err := encode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func filterKeys(f Filter) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
