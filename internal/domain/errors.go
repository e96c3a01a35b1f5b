package domain

import "errors"

var (
	// ErrNotFound: unknown id, nothing published yet, or archived on a public read.
	ErrNotFound = errors.New("not found")
	// ErrConflict: duplicate id on create.
	ErrConflict = errors.New("conflict")
	// ErrValidation: bad input rejected before any side effect.
	ErrValidation = errors.New("validation failed")
	// ErrUpstream: a calendar feed could not be fetched. Aborts the whole request.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrParseSkip marks one malformed calendar event. Never returned to callers.
	ErrParseSkip = errors.New("calendar event skipped")
	ErrForbidden = errors.New("forbidden")
)
