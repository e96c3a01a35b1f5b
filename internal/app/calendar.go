package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"property_listings/internal/adapters/observability"
	"property_listings/internal/domain"
	"property_listings/internal/ical"
)

// CalendarService reads a rental unit's external booking feed and turns it
// into blocked date ranges. Nothing is persisted.
type CalendarService struct {
	repo    domain.PropertyRepository
	policy  domain.Policy
	fetcher domain.FeedFetcher
}

func NewCalendarService(r domain.PropertyRepository, p domain.Policy, f domain.FeedFetcher) *CalendarService {
	return &CalendarService{repo: r, policy: p, fetcher: f}
}

// BlockedRanges uses the draft's unit at unitIndex. A unit without a feed URL
// has no blocked ranges.
func (s *CalendarService) BlockedRanges(ctx context.Context, who domain.Identity, id string, unitIndex int) ([]domain.BlockedRange, error) {
	if err := authorize(s.policy, who, id, domain.ActionRead); err != nil {
		return nil, err
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	units := doc.Draft.RentalUnits
	if unitIndex < 0 || unitIndex >= len(units) {
		return nil, fmt.Errorf("%w: unit index %d out of range (%d units)", domain.ErrValidation, unitIndex, len(units))
	}
	return s.FeedRanges(ctx, units[unitIndex].ICalURL)
}

// FeedRanges fetches and parses one feed URL. Blank URLs yield an empty list.
func (s *CalendarService) FeedRanges(ctx context.Context, rawURL string) ([]domain.BlockedRange, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return []domain.BlockedRange{}, nil
	}
	u, err := ical.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	body, err := s.fetcher.Fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}
	res := ical.Parse(string(body))
	observability.ObserveCalendar(len(res.Ranges), res.Skipped)
	if res.Skipped > 0 {
		log.Debug().Str("host", u.Host).Int("skipped", res.Skipped).Msg("calendar events without start skipped")
	}
	if res.Ranges == nil {
		return []domain.BlockedRange{}, nil
	}
	return res.Ranges, nil
}
