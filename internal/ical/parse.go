// Package ical turns an RFC 5545 feed into sorted blocked date ranges.
//
// Only VEVENT blocks are read, and only DTSTART, DTEND and SUMMARY inside
// them. Events without a usable DTSTART are skipped; nothing in a feed body
// can make Parse fail.
package ical

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"property_listings/internal/domain"
)

const (
	dateLayout    = "20060102"
	isoDateLayout = "2006-01-02"
)

// timestamp layouts tried in order for non date-only values
var timestampLayouts = []string{
	"20060102T150405Z",
	"20060102T150405",
	"20060102T1504Z",
	"20060102T1504",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: calendar url: %v", domain.ErrValidation, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: calendar url must be absolute", domain.ErrValidation)
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return nil, fmt.Errorf("%w: calendar url scheme %q not allowed", domain.ErrValidation, u.Scheme)
	}
	return u, nil
}

// ParseResult holds the ranges of one feed. Skipped counts VEVENT blocks
// dropped for lacking a parseable DTSTART.
type ParseResult struct {
	Ranges  []domain.BlockedRange
	Skipped int
}

// Parse unfolds body, scans its VEVENT blocks and returns their ranges in
// ascending start order.
func Parse(body string) ParseResult {
	var res ParseResult
	var ev *event

	for _, line := range unfold(body) {
		switch {
		case strings.EqualFold(line, "BEGIN:VEVENT"):
			ev = &event{}
		case strings.EqualFold(line, "END:VEVENT"):
			if ev == nil {
				continue
			}
			if r, err := ev.toRange(); err != nil {
				res.Skipped++
			} else {
				res.Ranges = append(res.Ranges, r)
			}
			ev = nil
		case ev != nil:
			ev.field(line)
		}
	}

	// YYYY-MM-DD sorts chronologically as a string
	sort.SliceStable(res.Ranges, func(i, j int) bool { return res.Ranges[i].Start < res.Ranges[j].Start })
	return res
}

// unfold joins continuation lines (leading space or tab) onto the previous
// logical line and drops blank lines.
func unfold(body string) []string {
	var out []string
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(out) > 0 {
			out[len(out)-1] += strings.TrimLeft(line, " \t")
			continue
		}
		out = append(out, line)
	}
	return out
}

type event struct {
	start, end string
	summary    string
	hasStart   bool
	hasEnd     bool
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func valueOf(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}

func (e *event) field(line string) {
	switch {
	case hasPrefixFold(line, "DTSTART"):
		e.start, e.hasStart = valueOf(line), true
	case hasPrefixFold(line, "DTEND"):
		e.end, e.hasEnd = valueOf(line), true
	case hasPrefixFold(line, "SUMMARY"):
		_, e.summary, _ = strings.Cut(line, ":")
	}
}

func (e *event) toRange() (domain.BlockedRange, error) {
	if !e.hasStart || e.start == "" {
		return domain.BlockedRange{}, fmt.Errorf("%w: no DTSTART", domain.ErrParseSkip)
	}
	start, _, err := parseDate(e.start)
	if err != nil {
		return domain.BlockedRange{}, fmt.Errorf("%w: DTSTART %q: %v", domain.ErrParseSkip, e.start, err)
	}

	endRaw := e.end
	if !e.hasEnd || endRaw == "" {
		endRaw = e.start
	}
	end, dateOnly, err := parseDate(endRaw)
	if err != nil {
		end, dateOnly = start, false
	}
	// all-day DTEND is exclusive; timestamped DTEND is taken as-is
	if dateOnly && end.After(start) {
		end = end.AddDate(0, 0, -1)
	}

	return domain.BlockedRange{
		Start:   start.Format(isoDateLayout),
		End:     end.Format(isoDateLayout),
		Summary: e.summary,
	}, nil
}

// parseDate reads an 8-digit date, or a timestamp truncated to its UTC day.
func parseDate(v string) (time.Time, bool, error) {
	if isDateOnly(v) {
		t, err := time.Parse(dateLayout, v)
		return t, true, err
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognised date %q", v)
}

func isDateOnly(v string) bool {
	if len(v) != 8 {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
