// Package store holds the per-entity-type record collections behind a
// repository interface so the rendering layer never touches the slices
// directly.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("duplicate record id")
	ErrEmptyID     = errors.New("record id is empty")
)

// Entity is a flat record keyed by a string identifier.
type Entity interface {
	Key() string
	// SearchFields lists the values matched by List's free-text filter.
	SearchFields() []string
}

// Repository is the list manager for one entity type.
type Repository[T Entity] interface {
	// List returns the records whose search fields contain filter as a
	// case-insensitive substring, in stored order. An empty filter
	// returns every record.
	List(ctx context.Context, filter string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	// Insert puts rec at the front of the collection.
	Insert(ctx context.Context, rec T) error
	// Update replaces the record stored under id with rec.
	Update(ctx context.Context, id string, rec T) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) int
}

// Action names a mutation kind.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionClear  Action = "clear"
)

// Change describes a committed mutation. PrevID is set when an update
// renamed the record.
type Change struct {
	Collection string `json:"collection"`
	Action     Action `json:"action"`
	ID         string `json:"id"`
	PrevID     string `json:"prev_id,omitempty"`
}

// Observer is called after every committed mutation.
type Observer func(ctx context.Context, c Change)

// Matches reports whether any of fields contains filter, ignoring case.
func Matches(fields []string, filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), filter) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of v by round-tripping it through JSON, so that
// slices inside a record are never shared between the store and callers.
func Clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// Exists adapts a repository to the reference checks in package validation.
func Exists[T Entity](ctx context.Context, repo Repository[T]) func(string) bool {
	return func(id string) bool {
		_, err := repo.Get(ctx, id)
		return err == nil
	}
}
