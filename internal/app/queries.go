package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"property_listings/internal/domain"
)

type QueryService struct {
	repo     domain.PropertyRepository
	cache    domain.Cache
	cacheTTL time.Duration
	policy   domain.Policy
}

func NewQueryService(r domain.PropertyRepository, c domain.Cache, ttl time.Duration, p domain.Policy) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, policy: p}
}

// GetPublished returns the public snapshot. Unknown ids, never-published and
// archived properties are all ErrNotFound.
func (s *QueryService) GetPublished(ctx context.Context, id string) (domain.PublishedSnapshot, error) {
	key := publishedKey(id)
	if s.cache != nil {
		var cached domain.PublishedSnapshot
		ok, err := s.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("id", id).Msg("unreadable cached snapshot, dropping it")
			_ = s.cache.Del(ctx, key)
		case ok:
			return cached, nil
		}
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.PublishedSnapshot{}, err
	}
	snap, ok := d.Snapshot()
	if !ok {
		return domain.PublishedSnapshot{}, fmt.Errorf("%w: no public snapshot for %q", domain.ErrNotFound, id)
	}
	if s.cache != nil {
		s.fillCache(ctx, key, d, snap)
	}
	return snap, nil
}

// fillCache stores snap and then re-reads the record. Writers drop the key
// after they commit, so if a write landed between our read and our Set the
// re-read sees it and the entry we just wrote is removed again.
func (s *QueryService) fillCache(ctx context.Context, key string, loaded domain.PropertyDocument, snap domain.PublishedSnapshot) {
	if err := s.cache.Set(ctx, key, snap, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("id", loaded.ID).Msg("cache fill failed")
		return
	}
	fresh, err := s.repo.Get(ctx, loaded.ID)
	if err == nil && fresh.Version == loaded.Version && fresh.Archived == loaded.Archived &&
		fresh.UpdatedAt.Equal(loaded.UpdatedAt) {
		return
	}
	if err := s.cache.Del(ctx, key); err != nil {
		log.Warn().Err(err).Str("id", loaded.ID).Msg("dropping stale cache fill failed")
	}
}

// ListPublished returns every visible snapshot, ordered by id.
func (s *QueryService) ListPublished(ctx context.Context) ([]domain.PublishedSnapshot, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PublishedSnapshot, 0, len(docs))
	for _, d := range docs {
		if snap, ok := d.Snapshot(); ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *QueryService) GetDraftForAdmin(ctx context.Context, who domain.Identity, id string) (domain.PropertyDocument, error) {
	if err := authorize(s.policy, who, id, domain.ActionRead); err != nil {
		return domain.PropertyDocument{}, err
	}
	return s.repo.Get(ctx, id)
}

// ListForAdmin returns every document, archived included, the caller may read.
func (s *QueryService) ListForAdmin(ctx context.Context, who domain.Identity) ([]domain.PropertyDocument, error) {
	if who.IsZero() {
		return nil, fmt.Errorf("%w: no identity", domain.ErrForbidden)
	}
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, d := range docs {
		if s.policy != nil && s.policy.Allowed(who, d.ID, domain.ActionRead) {
			out = append(out, d)
		}
	}
	return out, nil
}
