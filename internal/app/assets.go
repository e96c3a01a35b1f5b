package app

import (
	"net/http"
	"strings"
)

// propertyAssetRoot is where per-property uploads are served from.
const propertyAssetRoot = "/data/properties/"

func isAbsoluteURL(p string) bool {
	l := strings.ToLower(p)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// ResolveGeneric makes a site-relative path absolute against origin.
// Absolute http(s) URLs are returned unchanged, so the function is idempotent.
func ResolveGeneric(origin, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || isAbsoluteURL(path) {
		return path
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(path, "/")
}

// ResolvePropertyAsset maps a path relative to the property's asset folder
// to origin/data/properties/{id}/{path}. Paths already under that folder
// are only made absolute.
func ResolvePropertyAsset(origin, propertyID, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || isAbsoluteURL(path) {
		return path
	}
	prefix := propertyAssetRoot + propertyID + "/"
	if strings.HasPrefix("/"+strings.TrimLeft(path, "/"), prefix) {
		return ResolveGeneric(origin, path)
	}
	return strings.TrimRight(origin, "/") + prefix + strings.TrimLeft(path, "/")
}

// RequestOrigin returns scheme://host for r. A configured public base URL
// wins over anything the request says about itself.
func RequestOrigin(r *http.Request, override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(p, ",")[0]))
	}
	host := r.Host
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		host = strings.TrimSpace(strings.Split(h, ",")[0])
	}
	return scheme + "://" + host
}
