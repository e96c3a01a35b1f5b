// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"property_listings/internal/adapters/observability"
	"property_listings/internal/app"
	"property_listings/internal/domain"
)

// maxBodyBytes caps admin request bodies.
const maxBodyBytes = 2 << 20

type Handlers struct {
	Cmd *app.PropertyService
	Q   *app.QueryService
	Cal *app.CalendarService
	// PublicBaseURL, when set, is the origin used for asset URLs instead of
	// the one derived from the request.
	PublicBaseURL string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/properties", h.listPublished)
	s.mux.Get("/properties/{id}", h.getPublished)

	s.mux.Route("/admin/properties", func(r chi.Router) {
		r.Use(RequireIdentity)
		r.Get("/", h.adminList)
		r.Post("/", h.create)
		r.Get("/{id}", h.adminGet)
		r.Put("/{id}", h.updateDraft)
		r.Post("/{id}/publish", h.lifecycle("publish", h.Cmd.Publish))
		r.Post("/{id}/revert", h.lifecycle("revert", h.Cmd.Revert))
		r.Post("/{id}/archive", h.lifecycle("archive", h.Cmd.Archive))
		r.Post("/{id}/restore", h.lifecycle("restore", h.Cmd.Restore))
		r.Get("/{id}/availability/ical", h.blockedRanges)
	})
}

// ---- request parsing ----

// selectLang picks ?lang=, else the first supported Accept-Language entry, else the default.
func selectLang(r *http.Request) string {
	if q := domain.NormalizeLang(r.URL.Query().Get("lang")); q != "" {
		return q
	}
	for _, part := range strings.Split(r.Header.Get("Accept-Language"), ",") {
		tag, _, _ := strings.Cut(part, ";")
		primary, _, _ := strings.Cut(strings.TrimSpace(tag), "-")
		if domain.IsSupportedLanguage(primary) {
			return domain.NormalizeLang(primary)
		}
	}
	return domain.DefaultLanguage
}

func parseBoolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(name + " must be true or false")
	}
	return b, nil
}

type view struct {
	lang string
	all  bool
}

func parseView(w http.ResponseWriter, r *http.Request) (view, bool) {
	all, err := parseBoolParam(r, "includeAllLanguages")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
		return view{}, false
	}
	return view{lang: selectLang(r), all: all}, true
}

func (v view) options(r *http.Request, h *Handlers, propertyID string, codes []string) app.ProjectOptions {
	o := app.ProjectOptions{
		Mode:       app.ModeSingle,
		Lang:       v.lang,
		Origin:     app.RequestOrigin(r, h.PublicBaseURL),
		PropertyID: propertyID,
	}
	if v.all {
		o.Mode = app.ModeAll
		o.Codes = codes
	}
	return o
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

// ---- responses ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem documents.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "not allowed for this property")
	case errors.Is(err, domain.ErrUpstream):
		writeProblem(w, http.StatusBadGateway, "Upstream Error", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "request timed out")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCachedJSON answers 304 when the client already holds this body.
func writeCachedJSON(w http.ResponseWriter, r *http.Request, lang string, v any) {
	etag, body := calcETagAndBody(v)
	w.Header().Set("Vary", "Accept-Language")
	if inm := r.Header.Get("If-None-Match"); inm != "" && etag != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
	if lang != "" {
		w.Header().Set("Content-Language", lang)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- public ----

type publicProperty struct {
	ID               string                `json:"id"`
	Status           domain.PropertyStatus `json:"status"`
	Version          int                   `json:"version"`
	PublishedAt      *time.Time            `json:"publishedAt"`
	Language         string                `json:"language,omitempty"`
	ListingLanguages []string              `json:"listingLanguages"`
	Content          map[string]any        `json:"content"`
}

type publicListItem struct {
	ID        string                `json:"id"`
	Status    domain.PropertyStatus `json:"status"`
	Version   int                   `json:"version"`
	Name      any                   `json:"name"`
	Summary   any                   `json:"summary"`
	HeroImage any                   `json:"heroImage"`
}

func (h *Handlers) getPublished(w http.ResponseWriter, r *http.Request) {
	v, ok := parseView(w, r)
	if !ok {
		return
	}
	snap, err := h.Q.GetPublished(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := app.Project(snap.Content, v.options(r, h, snap.ID, snap.ListingLanguages))
	out := publicProperty{
		ID:               snap.ID,
		Status:           snap.Status,
		Version:          snap.Version,
		PublishedAt:      snap.PublishedAt,
		ListingLanguages: snap.ListingLanguages,
		Content:          p.Content,
	}
	lang := ""
	if !v.all {
		out.Language, lang = v.lang, v.lang
	}
	writeCachedJSON(w, r, lang, out)
}

func (h *Handlers) listPublished(w http.ResponseWriter, r *http.Request) {
	v, ok := parseView(w, r)
	if !ok {
		return
	}
	snaps, err := h.Q.ListPublished(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]publicListItem, 0, len(snaps))
	for _, s := range snaps {
		p := app.Project(s.Content, v.options(r, h, s.ID, s.ListingLanguages))
		item := publicListItem{ID: s.ID, Status: s.Status, Version: s.Version, Name: p.Content["name"], Summary: p.Content["summary"]}
		if imgs, ok := p.Content["heroImages"].([]any); ok && len(imgs) > 0 {
			item.HeroImage = imgs[0]
		}
		items = append(items, item)
	}
	lang := ""
	if !v.all {
		lang = v.lang
	}
	writeCachedJSON(w, r, lang, map[string]any{"items": items})
}

// ---- admin ----

type adminProperty struct {
	ID                  string                `json:"id"`
	Status              domain.PropertyStatus `json:"status"`
	Archived            bool                  `json:"archived"`
	IsPublished         bool                  `json:"isPublished"`
	Version             int                   `json:"version"`
	DraftRevision       int                   `json:"draftRevision"`
	ListingLanguages    []string              `json:"listingLanguages"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
	PublishedAt         *time.Time            `json:"publishedAt"`
	Draft               any                   `json:"draft"`
	Published           any                   `json:"published"`
	MissingTranslations map[string][]string   `json:"missingTranslations,omitempty"`
}

func adminHeader(d domain.PropertyDocument) adminProperty {
	return adminProperty{
		ID:               d.ID,
		Status:           d.Status,
		Archived:         d.Archived,
		IsPublished:      d.IsPublished,
		Version:          d.Version,
		DraftRevision:    d.DraftRevision,
		ListingLanguages: d.ListingLanguages,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		PublishedAt:      d.PublishedAt,
	}
}

// adminView renders a document for editors. raw=true returns the stored
// per-language maps untouched, which is what the editor sends back on PUT.
func (h *Handlers) adminView(r *http.Request, v view, raw bool, d domain.PropertyDocument) adminProperty {
	out := adminHeader(d)
	if raw {
		out.Draft = d.Draft
		if d.Published != nil {
			out.Published = d.Published
		}
		return out
	}
	opts := v.options(r, h, d.ID, d.ListingLanguages)
	draft := app.Project(d.Draft, opts)
	out.Draft = draft.Content
	out.MissingTranslations = draft.Missing
	if d.Published != nil {
		out.Published = app.Project(*d.Published, opts).Content
	}
	return out
}

func (h *Handlers) adminGet(w http.ResponseWriter, r *http.Request) {
	v, ok := parseView(w, r)
	if !ok {
		return
	}
	raw, err := parseBoolParam(r, "raw")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}
	d, err := h.Q.GetDraftForAdmin(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.adminView(r, v, raw, d))
}

type adminListItem struct {
	ID               string                `json:"id"`
	Status           domain.PropertyStatus `json:"status"`
	Archived         bool                  `json:"archived"`
	IsPublished      bool                  `json:"isPublished"`
	Version          int                   `json:"version"`
	ListingLanguages []string              `json:"listingLanguages"`
	Name             any                   `json:"name"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

func (h *Handlers) adminList(w http.ResponseWriter, r *http.Request) {
	v, ok := parseView(w, r)
	if !ok {
		return
	}
	docs, err := h.Q.ListForAdmin(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]adminListItem, 0, len(docs))
	for _, d := range docs {
		var name any = d.Draft.Name.ResolveDefault(v.lang)
		if v.all {
			name = d.Draft.Name.ProjectAllLanguages(d.ListingLanguages)
		}
		items = append(items, adminListItem{
			ID: d.ID, Status: d.Status, Archived: d.Archived, IsPublished: d.IsPublished,
			Version: d.Version, ListingLanguages: d.ListingLanguages, Name: name, UpdatedAt: d.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createRequest struct {
	ID               string               `json:"id"`
	Name             domain.LocalizedText `json:"name"`
	Status           string               `json:"status"`
	ListingLanguages []string             `json:"listingLanguages"`
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.Cmd.Create(r.Context(), identityFrom(r.Context()), app.CreateInput{
		ID:               req.ID,
		Name:             req.Name,
		Status:           req.Status,
		ListingLanguages: req.ListingLanguages,
	})
	observability.ObserveStoreOp("create", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/admin/properties/"+d.ID)
	writeJSON(w, http.StatusCreated, h.adminView(r, view{lang: selectLang(r)}, true, d))
}

func (h *Handlers) updateDraft(w http.ResponseWriter, r *http.Request) {
	var c domain.Content
	if !decodeJSON(w, r, &c) {
		return
	}
	d, err := h.Cmd.UpdateDraft(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), c)
	observability.ObserveStoreOp("update_draft", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.adminView(r, view{lang: selectLang(r)}, true, d))
}

type lifecycleFunc func(ctx context.Context, who domain.Identity, id string) (domain.PropertyDocument, error)

// lifecycle wraps the body-less POST transitions.
func (h *Handlers) lifecycle(op string, fn lifecycleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := fn(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
		observability.ObserveStoreOp(op, err)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, adminHeader(d))
	}
}

func (h *Handlers) blockedRanges(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.URL.Query().Get("unitIndex"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", "unitIndex must be an integer")
		return
	}
	ranges, err := h.Cal.BlockedRanges(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), idx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ranges": ranges})
}
