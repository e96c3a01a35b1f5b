package domain

import "context"

type PropertyRepository interface {
	// Write paths
	Insert(ctx context.Context, d PropertyDocument) error // ErrConflict on duplicate id
	// Update loads id, applies fn to a private copy inside the id's critical
	// section and replaces the stored record whole. Returning an error from fn
	// leaves the record untouched.
	Update(ctx context.Context, id string, fn func(d *PropertyDocument) error) (PropertyDocument, error)

	// Read paths
	Get(ctx context.Context, id string) (PropertyDocument, error) // ErrNotFound
	List(ctx context.Context) ([]PropertyDocument, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// FeedFetcher downloads a calendar feed body.
type FeedFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}
