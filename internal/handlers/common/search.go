package common

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"pcbaerp/internal/response"
)

// Searchable is a collection that takes part in global search.
type Searchable interface {
	SearchName() string
	Search(ctx context.Context, q string, limit int) ([]any, error)
}

// SearchName returns the key the resource's hits are grouped under.
func (res *Resource[T]) SearchName() string { return res.Path }

// Search returns up to limit records matching q.
func (res *Resource[T]) Search(ctx context.Context, q string, limit int) ([]any, error) {
	items, err := res.Repo().List(ctx, q)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, nil
}

// GlobalSearch handles GET /search?q=&limit= across every given collection.
func GlobalSearch(sources ...Searchable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 {
			limit = 20
		}

		results := make(map[string][]any, len(sources))
		total := 0
		for _, src := range sources {
			hits := []any{}
			if q != "" {
				found, err := src.Search(r.Context(), q, limit)
				if err != nil {
					response.FromError(w, err)
					return
				}
				hits = found
			}
			results[src.SearchName()] = hits
			total += len(hits)
		}
		response.JSONMeta(w, results, total, q)
	}
}
