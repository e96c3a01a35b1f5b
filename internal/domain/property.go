package domain

import (
	"fmt"
	"strings"
	"time"
)

type PropertyStatus string

const (
	StatusRental PropertyStatus = "rental"
	StatusSale   PropertyStatus = "sale"
	StatusBoth   PropertyStatus = "both"
)

func ParseStatus(s string) (PropertyStatus, error) {
	switch st := PropertyStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusRental, StatusSale, StatusBoth:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
}

// PropertyDocument is the stored unit: one draft slot, at most one published
// slot and a publish counter per id.
type PropertyDocument struct {
	ID               string
	Status           PropertyStatus
	Archived         bool
	IsPublished      bool
	Version          int // incremented once per Publish
	DraftRevision    int // incremented once per UpdateDraft or Revert
	ListingLanguages []string
	InitialName      LocalizedText
	Draft            Content
	Published        *Content
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PublishedAt      *time.Time
}

// Clone deep-copies the document so callers can mutate it without touching
// a record another goroutine may be reading.
func (d PropertyDocument) Clone() (PropertyDocument, error) {
	out := d
	out.ListingLanguages = append([]string(nil), d.ListingLanguages...)
	out.InitialName = d.InitialName.Clone()
	draft, err := d.Draft.Clone()
	if err != nil {
		return PropertyDocument{}, fmt.Errorf("clone draft %s: %w", d.ID, err)
	}
	out.Draft = draft
	if d.Published != nil {
		pub, err := d.Published.Clone()
		if err != nil {
			return PropertyDocument{}, fmt.Errorf("clone published %s: %w", d.ID, err)
		}
		out.Published = &pub
	}
	if d.PublishedAt != nil {
		t := *d.PublishedAt
		out.PublishedAt = &t
	}
	return out, nil
}

// NormalizeLanguages lower-cases, de-duplicates and keeps only supported codes.
func NormalizeLanguages(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = NormalizeLang(c)
		if !IsSupportedLanguage(c) {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// PublishedSnapshot is the read model served to the public and cached.
type PublishedSnapshot struct {
	ID               string         `json:"id"`
	Status           PropertyStatus `json:"status"`
	Version          int            `json:"version"`
	ListingLanguages []string       `json:"listingLanguages"`
	PublishedAt      *time.Time     `json:"publishedAt"`
	Content          Content        `json:"content"`
}

// Snapshot extracts the public view, or false if there is none to show.
func (d PropertyDocument) Snapshot() (PublishedSnapshot, bool) {
	if d.Archived || !d.IsPublished || d.Published == nil {
		return PublishedSnapshot{}, false
	}
	return PublishedSnapshot{
		ID:               d.ID,
		Status:           d.Status,
		Version:          d.Version,
		ListingLanguages: d.ListingLanguages,
		PublishedAt:      d.PublishedAt,
		Content:          *d.Published,
	}, true
}
