package domain

// BlockedRange is a span of days a rental unit cannot be booked. Dates are
// YYYY-MM-DD and End is inclusive. Computed per request, never stored.
type BlockedRange struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Summary string `json:"summary,omitempty"`
}
