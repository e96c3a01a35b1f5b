package httpserver_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"property_listings/internal/adapters/auth"
	"property_listings/internal/adapters/feed"
	httpserver "property_listings/internal/adapters/http_server"
	"property_listings/internal/app"
	"property_listings/internal/storage/memory"
)

const feedBody = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\nDTSTART;VALUE=DATE:20250610\r\nDTEND;VALUE=DATE:20250613\r\nSUMMARY:Booked\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type harness struct {
	t    *testing.T
	api  *httptest.Server
	feed *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down.ics" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feedBody))
	}))
	t.Cleanup(feedSrv.Close)

	repo := memory.New()
	policy := auth.RolePolicy{}
	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{
		Cmd:           app.NewPropertyService(repo, nil, policy),
		Q:             app.NewQueryService(repo, nil, time.Minute, policy),
		Cal:           app.NewCalendarService(repo, policy, feed.New(feed.Options{RPS: 100})),
		PublicBaseURL: "https://villas.example",
	})
	api := httptest.NewServer(srv.Mux())
	t.Cleanup(api.Close)
	return &harness{t: t, api: api, feed: feedSrv}
}

type call struct {
	method, path, body string
	user, roles, props string
	headers            map[string]string
}

func (h *harness) do(c call) (*http.Response, []byte) {
	h.t.Helper()
	var rdr io.Reader
	if c.body != "" {
		rdr = strings.NewReader(c.body)
	}
	req, err := http.NewRequest(c.method, h.api.URL+c.path, rdr)
	if err != nil {
		h.t.Fatalf("new request: %v", err)
	}
	if c.user != "" {
		req.Header.Set("X-User-Id", c.user)
		req.Header.Set("X-User-Roles", c.roles)
		req.Header.Set("X-User-Properties", c.props)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", c.method, c.path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func (h *harness) admin(method, path, body string) (*http.Response, []byte) {
	return h.do(call{method: method, path: path, body: body, user: "ana", roles: "admin"})
}

func (h *harness) expect(resp *http.Response, body []byte, status int) {
	h.t.Helper()
	if resp.StatusCode != status {
		h.t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, status, body)
	}
}

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return m
}

func (h *harness) seed(unitURL string) {
	h.t.Helper()
	resp, b := h.admin("POST", "/admin/properties",
		`{"id":"villa-rosa","name":{"en":"Villa Rosa","fr":"Villa Rose"},"status":"rental","listingLanguages":["en","fr"]}`)
	h.expect(resp, b, http.StatusCreated)

	draft := `{
		"name": {"en": "Villa Rosa", "fr": "Villa Rose"},
		"summary": "Sea views",
		"heroImages": [{"path": "hero.jpg", "alt": {"en": "Pool"}, "caption": null}],
		"pages": [], "places": null, "facilities": [], "location": null,
		"externalLinks": [], "pdfs": [], "sales": null, "guestInfo": null,
		"rentalUnits": [{"key": "main", "name": {"en": "Main"}, "description": null,
			"sleeps": 6, "bedrooms": 3, "heroImage": null, "images": [], "rates": [],
			"conditions": [], "bookings": [], "availability": {"notes": null, "calendarSnapshot": null},
			"icalUrl": "` + unitURL + `"}]
	}`
	resp, b = h.admin("PUT", "/admin/properties/villa-rosa", draft)
	h.expect(resp, b, http.StatusOK)
}

func TestPublicRead_LifecycleAndETag(t *testing.T) {
	h := newHarness(t)
	h.seed("")

	resp, b := h.do(call{method: "GET", path: "/properties/villa-rosa"})
	h.expect(resp, b, http.StatusNotFound)
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("problem content type: %q", ct)
	}

	resp, b = h.admin("POST", "/admin/properties/villa-rosa/publish", "")
	h.expect(resp, b, http.StatusOK)
	if v := decode(t, b)["version"]; v != float64(1) {
		t.Fatalf("version after publish: %v", v)
	}

	resp, b = h.do(call{method: "GET", path: "/properties/villa-rosa", headers: map[string]string{"Accept-Language": "fr-CA, en;q=0.5"}})
	h.expect(resp, b, http.StatusOK)
	body := decode(t, b)
	content := body["content"].(map[string]any)
	if content["name"] != "Villa Rose" || body["language"] != "fr" {
		t.Fatalf("unexpected projection: %s", b)
	}
	hero := content["heroImages"].([]any)[0].(map[string]any)
	if hero["path"] != "https://villas.example/data/properties/villa-rosa/hero.jpg" {
		t.Fatalf("asset not resolved: %v", hero["path"])
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	resp, b = h.do(call{method: "GET", path: "/properties/villa-rosa?lang=fr", headers: map[string]string{"If-None-Match": etag}})
	h.expect(resp, b, http.StatusNotModified)

	resp, b = h.do(call{method: "GET", path: "/properties/villa-rosa?includeAllLanguages=true"})
	h.expect(resp, b, http.StatusOK)
	name := decode(t, b)["content"].(map[string]any)["name"].(map[string]any)
	if name["en"] != "Villa Rosa" || name["fr"] != "Villa Rose" {
		t.Fatalf("all-language name: %v", name)
	}

	resp, b = h.do(call{method: "GET", path: "/properties"})
	h.expect(resp, b, http.StatusOK)
	if items := decode(t, b)["items"].([]any); len(items) != 1 {
		t.Fatalf("public list: %s", b)
	}

	resp, b = h.admin("POST", "/admin/properties/villa-rosa/archive", "")
	h.expect(resp, b, http.StatusOK)
	resp, b = h.do(call{method: "GET", path: "/properties/villa-rosa"})
	h.expect(resp, b, http.StatusNotFound)
}

func TestAdmin_AuthAndErrors(t *testing.T) {
	h := newHarness(t)
	h.seed("")

	resp, b := h.do(call{method: "GET", path: "/admin/properties/villa-rosa"})
	h.expect(resp, b, http.StatusUnauthorized)

	resp, b = h.do(call{method: "POST", path: "/admin/properties/villa-rosa/publish", user: "vic", roles: "viewer", props: "villa-rosa"})
	h.expect(resp, b, http.StatusForbidden)

	resp, b = h.do(call{method: "GET", path: "/admin/properties/villa-rosa", user: "vic", roles: "viewer", props: "villa-rosa"})
	h.expect(resp, b, http.StatusOK)

	resp, b = h.do(call{method: "GET", path: "/admin/properties", user: "ed", roles: "editor", props: "other"})
	h.expect(resp, b, http.StatusOK)
	if items := decode(t, b)["items"].([]any); len(items) != 0 {
		t.Fatalf("editor sees foreign property: %s", b)
	}

	resp, b = h.admin("POST", "/admin/properties", `{"id":"villa-rosa","name":"Dup","status":"rental","listingLanguages":["en"]}`)
	h.expect(resp, b, http.StatusConflict)

	resp, b = h.admin("POST", "/admin/properties", `{"id":"x","name":"X","status":"castle","listingLanguages":["en"]}`)
	h.expect(resp, b, http.StatusBadRequest)

	resp, b = h.admin("PUT", "/admin/properties/villa-rosa", `{"bogus": true}`)
	h.expect(resp, b, http.StatusBadRequest)

	resp, b = h.admin("POST", "/admin/properties/nope/publish", "")
	h.expect(resp, b, http.StatusNotFound)

	resp, b = h.do(call{method: "GET", path: "/properties?includeAllLanguages=maybe"})
	h.expect(resp, b, http.StatusBadRequest)
}

func TestAdmin_MissingTranslationsAndRevert(t *testing.T) {
	h := newHarness(t)
	h.seed("")

	resp, b := h.admin("GET", "/admin/properties/villa-rosa?includeAllLanguages=true", "")
	h.expect(resp, b, http.StatusOK)
	missing := decode(t, b)["missingTranslations"].(map[string]any)
	if got, _ := missing["summary"].([]any); len(got) != 1 || got[0] != "fr" {
		t.Fatalf("summary missing: %v", missing)
	}
	if _, ok := missing["name"]; ok {
		t.Fatalf("name fully translated: %v", missing)
	}

	resp, b = h.admin("POST", "/admin/properties/villa-rosa/revert", "")
	h.expect(resp, b, http.StatusOK)
	resp, b = h.admin("GET", "/admin/properties/villa-rosa?raw=true", "")
	h.expect(resp, b, http.StatusOK)
	draft := decode(t, b)["draft"].(map[string]any)
	if units := draft["rentalUnits"].([]any); len(units) != 0 {
		t.Fatalf("revert before publish keeps edits: %v", units)
	}
}

func TestAdmin_Calendar(t *testing.T) {
	h := newHarness(t)
	h.seed(h.feed.URL + "/cal.ics")

	resp, b := h.admin("GET", "/admin/properties/villa-rosa/availability/ical?unitIndex=0", "")
	h.expect(resp, b, http.StatusOK)
	ranges := decode(t, b)["ranges"].([]any)
	if len(ranges) != 1 {
		t.Fatalf("ranges: %s", b)
	}
	r := ranges[0].(map[string]any)
	if r["start"] != "2025-06-10" || r["end"] != "2025-06-12" || r["summary"] != "Booked" {
		t.Fatalf("range: %v", r)
	}

	resp, b = h.admin("GET", "/admin/properties/villa-rosa/availability/ical?unitIndex=3", "")
	h.expect(resp, b, http.StatusBadRequest)
	resp, b = h.admin("GET", "/admin/properties/villa-rosa/availability/ical", "")
	h.expect(resp, b, http.StatusBadRequest)

	// point the unit at a failing feed
	h2 := newHarness(t)
	h2.seed(h2.feed.URL + "/down.ics")
	resp, b = h2.admin("GET", "/admin/properties/villa-rosa/availability/ical?unitIndex=0", "")
	h2.expect(resp, b, http.StatusBadGateway)
}
