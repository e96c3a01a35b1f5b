package app_test

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"

	"property_listings/internal/app"
)

func TestResolvePropertyAsset(t *testing.T) {
	cases := []struct {
		origin, path, want string
	}{
		{"https://s.example", "img/a.jpg", "https://s.example/data/properties/p1/img/a.jpg"},
		{"https://s.example/", "/img/a.jpg", "https://s.example/data/properties/p1/img/a.jpg"},
		{"https://s.example", "/data/properties/p1/a.jpg", "https://s.example/data/properties/p1/a.jpg"},
		{"https://s.example", "data/properties/p1/a.jpg", "https://s.example/data/properties/p1/a.jpg"},
		{"https://s.example", "/data/properties/p2/a.jpg", "https://s.example/data/properties/p1/data/properties/p2/a.jpg"},
		{"https://s.example", "HTTPS://cdn.example/a.jpg", "HTTPS://cdn.example/a.jpg"},
		{"https://s.example", "", ""},
		{"", "a.jpg", "/data/properties/p1/a.jpg"},
	}
	for _, c := range cases {
		got := app.ResolvePropertyAsset(c.origin, "p1", c.path)
		if got != c.want {
			t.Errorf("(%q,%q): got %q want %q", c.origin, c.path, got, c.want)
		}
		if again := app.ResolvePropertyAsset(c.origin, "p1", got); again != got {
			t.Errorf("(%q,%q): not idempotent: %q -> %q", c.origin, c.path, got, again)
		}
	}
}

func TestResolveGeneric(t *testing.T) {
	cases := []struct {
		origin, path, want string
	}{
		{"https://s.example", "uploads/x.png", "https://s.example/uploads/x.png"},
		{"https://s.example/", "//uploads/x.png", "https://s.example/uploads/x.png"},
		{"https://s.example", "http://other/x.png", "http://other/x.png"},
		{"https://s.example", "  ", ""},
	}
	for _, c := range cases {
		got := app.ResolveGeneric(c.origin, c.path)
		if got != c.want {
			t.Errorf("(%q,%q): got %q want %q", c.origin, c.path, got, c.want)
		}
		if again := app.ResolveGeneric(c.origin, got); again != got {
			t.Errorf("not idempotent: %q -> %q", got, again)
		}
	}
}

func TestRequestOrigin(t *testing.T) {
	r := httptest.NewRequest("GET", "http://internal:8080/properties", nil)
	if got := app.RequestOrigin(r, ""); got != "http://internal:8080" {
		t.Fatalf("plain: %q", got)
	}
	r.TLS = &tls.ConnectionState{}
	if got := app.RequestOrigin(r, ""); got != "https://internal:8080" {
		t.Fatalf("tls: %q", got)
	}
	r.Header.Set("X-Forwarded-Proto", "https, http")
	r.Header.Set("X-Forwarded-Host", "listings.example, proxy")
	if got := app.RequestOrigin(r, ""); got != "https://listings.example" {
		t.Fatalf("forwarded: %q", got)
	}
	if got := app.RequestOrigin(r, "https://public.example/"); got != "https://public.example" {
		t.Fatalf("override: %q", got)
	}
}
