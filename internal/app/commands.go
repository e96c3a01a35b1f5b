package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"property_listings/internal/domain"
)

// PropertyService owns the draft/published lifecycle. Every method takes the
// caller's identity explicitly; the decision itself comes from the Policy.
type PropertyService struct {
	repo   domain.PropertyRepository
	cache  domain.Cache
	policy domain.Policy
	now    func() time.Time
}

func NewPropertyService(r domain.PropertyRepository, c domain.Cache, p domain.Policy) *PropertyService {
	return &PropertyService{repo: r, cache: c, policy: p, now: func() time.Time { return time.Now().UTC() }}
}

type CreateInput struct {
	ID               string
	Name             domain.LocalizedText
	Status           string
	ListingLanguages []string
}

func (s *PropertyService) Create(ctx context.Context, who domain.Identity, in CreateInput) (domain.PropertyDocument, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return domain.PropertyDocument{}, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	if strings.Contains(id, "/") {
		return domain.PropertyDocument{}, fmt.Errorf("%w: id must not contain '/'", domain.ErrValidation)
	}
	name := domain.NormalizeText(in.Name)
	if name.IsEmpty() {
		return domain.PropertyDocument{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	status, err := domain.ParseStatus(in.Status)
	if err != nil {
		return domain.PropertyDocument{}, err
	}
	langs := domain.NormalizeLanguages(in.ListingLanguages)
	if len(langs) == 0 {
		return domain.PropertyDocument{}, fmt.Errorf("%w: at least one supported listing language is required", domain.ErrValidation)
	}
	if err := s.authorize(who, id, domain.ActionWrite); err != nil {
		return domain.PropertyDocument{}, err
	}

	now := s.now()
	doc := domain.PropertyDocument{
		ID:               id,
		Status:           status,
		ListingLanguages: langs,
		InitialName:      name,
		Draft:            domain.InitialContent(name),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, doc); err != nil {
		return domain.PropertyDocument{}, err
	}
	log.Info().Str("id", id).Str("by", who.Subject).Msg("property created")
	return doc, nil
}

// UpdateDraft replaces the draft wholesale. Concurrent editors are
// last-write-wins; DraftRevision only counts draft changes.
func (s *PropertyService) UpdateDraft(ctx context.Context, who domain.Identity, id string, content domain.Content) (domain.PropertyDocument, error) {
	if err := s.authorize(who, id, domain.ActionWrite); err != nil {
		return domain.PropertyDocument{}, err
	}
	draft, err := content.Clone()
	if err != nil {
		return domain.PropertyDocument{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return s.repo.Update(ctx, id, func(d *domain.PropertyDocument) error {
		d.Draft = draft
		d.DraftRevision++
		d.UpdatedAt = s.now()
		return nil
	})
}

// Publish copies the draft into the published slot and bumps the version,
// even when the content did not change since the previous publish.
func (s *PropertyService) Publish(ctx context.Context, who domain.Identity, id string) (domain.PropertyDocument, error) {
	if err := s.authorize(who, id, domain.ActionWrite); err != nil {
		return domain.PropertyDocument{}, err
	}
	doc, err := s.repo.Update(ctx, id, func(d *domain.PropertyDocument) error {
		pub, err := d.Draft.Clone()
		if err != nil {
			return err
		}
		now := s.now()
		d.Published = &pub
		d.IsPublished = true
		d.Version++
		d.PublishedAt = &now
		d.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.PropertyDocument{}, err
	}
	s.invalidatePublished(ctx, id)
	log.Info().Str("id", id).Int("version", doc.Version).Str("by", who.Subject).Msg("property published")
	return doc, nil
}

// Revert throws the draft away: back to the published snapshot, or to the
// initial content if nothing was ever published.
func (s *PropertyService) Revert(ctx context.Context, who domain.Identity, id string) (domain.PropertyDocument, error) {
	if err := s.authorize(who, id, domain.ActionWrite); err != nil {
		return domain.PropertyDocument{}, err
	}
	return s.repo.Update(ctx, id, func(d *domain.PropertyDocument) error {
		if d.IsPublished && d.Published != nil {
			draft, err := d.Published.Clone()
			if err != nil {
				return err
			}
			d.Draft = draft
		} else {
			d.Draft = domain.InitialContent(d.InitialName)
		}
		d.DraftRevision++
		d.UpdatedAt = s.now()
		return nil
	})
}

func (s *PropertyService) Archive(ctx context.Context, who domain.Identity, id string) (domain.PropertyDocument, error) {
	return s.setArchived(ctx, who, id, true)
}

func (s *PropertyService) Restore(ctx context.Context, who domain.Identity, id string) (domain.PropertyDocument, error) {
	return s.setArchived(ctx, who, id, false)
}

func (s *PropertyService) setArchived(ctx context.Context, who domain.Identity, id string, archived bool) (domain.PropertyDocument, error) {
	if err := s.authorize(who, id, domain.ActionWrite); err != nil {
		return domain.PropertyDocument{}, err
	}
	doc, err := s.repo.Update(ctx, id, func(d *domain.PropertyDocument) error {
		d.Archived = archived
		d.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return domain.PropertyDocument{}, err
	}
	s.invalidatePublished(ctx, id)
	log.Info().Str("id", id).Bool("archived", archived).Str("by", who.Subject).Msg("property archive flag changed")
	return doc, nil
}

func (s *PropertyService) authorize(who domain.Identity, id string, action domain.Action) error {
	return authorize(s.policy, who, id, action)
}

func authorize(p domain.Policy, who domain.Identity, id string, action domain.Action) error {
	if who.IsZero() || p == nil || !p.Allowed(who, id, action) {
		return fmt.Errorf("%w: %s %s", domain.ErrForbidden, action, id)
	}
	return nil
}

// invalidate the cached public snapshot
func (s *PropertyService) invalidatePublished(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, publishedKey(id)); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("cache invalidation failed")
	}
}

func publishedKey(id string) string { return "property:" + id + ":published" }
