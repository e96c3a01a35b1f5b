package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultLanguage is the fallback code used when a requested translation is absent.
const DefaultLanguage = "en"

// SupportedLanguages is the fixed set of codes an editor can author.
// Order matters: it is the scan order of the last-resort fallback in Resolve.
var SupportedLanguages = []string{"en", "fr", "es", "de", "it", "nl"}

// IsSupportedLanguage reports whether code (any case) is one of SupportedLanguages.
func IsSupportedLanguage(code string) bool {
	code = NormalizeLang(code)
	for _, l := range SupportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}

// NormalizeLang lower-cases and trims a language code.
func NormalizeLang(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// LocalizedText maps a language code to text. A missing key and an empty
// string both mean "no translation authored".
type LocalizedText map[string]string

// NormalizeText accepts the shapes found in stored content: a bare legacy
// string, a LocalizedText, or a decoded JSON object. Keys are lower-cased.
func NormalizeText(v any) LocalizedText {
	switch t := v.(type) {
	case nil:
		return LocalizedText{}
	case string:
		return LocalizedText{DefaultLanguage: t}
	case LocalizedText:
		return t.normalized()
	case map[string]string:
		return LocalizedText(t).normalized()
	case map[string]any:
		out := make(LocalizedText, len(t))
		for k, raw := range t {
			if s, ok := raw.(string); ok {
				out[NormalizeLang(k)] = s
			}
		}
		return out
	default:
		return LocalizedText{DefaultLanguage: fmt.Sprint(t)}
	}
}

func (t LocalizedText) normalized() LocalizedText {
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[NormalizeLang(k)] = v
	}
	return out
}

// Text builds a LocalizedText from alternating code, text pairs.
func Text(pairs ...string) LocalizedText {
	out := make(LocalizedText, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[NormalizeLang(pairs[i])] = pairs[i+1]
	}
	return out
}

// Resolve returns the text for lang, else for fallback, else the first
// non-empty entry, else "".
func (t LocalizedText) Resolve(lang, fallback string) string {
	if len(t) == 0 {
		return ""
	}
	if s := t[NormalizeLang(lang)]; s != "" {
		return s
	}
	if s := t[NormalizeLang(fallback)]; s != "" {
		return s
	}
	for _, code := range t.scanOrder() {
		if s := t[code]; s != "" {
			return s
		}
	}
	return ""
}

// ResolveDefault is Resolve with DefaultLanguage as the fallback.
func (t LocalizedText) ResolveDefault(lang string) string {
	return t.Resolve(lang, DefaultLanguage)
}

// scanOrder lists keys supported-first, then the rest sorted, so the
// last-resort pick is deterministic.
func (t LocalizedText) scanOrder() []string {
	out := make([]string, 0, len(t))
	seen := make(map[string]struct{}, len(SupportedLanguages))
	for _, l := range SupportedLanguages {
		seen[l] = struct{}{}
		if _, ok := t[l]; ok {
			out = append(out, l)
		}
	}
	var rest []string
	for k := range t {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// SetValue returns a normalized copy of t with lang set to text.
func (t LocalizedText) SetValue(lang, text string) LocalizedText {
	out := t.normalized()
	out[NormalizeLang(lang)] = text
	return out
}

// ProjectAllLanguages returns one entry per code, each filled through
// Resolve. Gaps are filled with fallback text; use MissingLanguages to
// learn what was actually authored.
func (t LocalizedText) ProjectAllLanguages(codes []string) map[string]string {
	out := make(map[string]string, len(codes))
	for _, c := range codes {
		c = NormalizeLang(c)
		out[c] = t.ResolveDefault(c)
	}
	return out
}

// Authored reports whether a non-empty translation exists for lang.
func (t LocalizedText) Authored(lang string) bool {
	return t[NormalizeLang(lang)] != ""
}

// IsEmpty reports whether no language carries text.
func (t LocalizedText) IsEmpty() bool {
	for _, v := range t {
		if v != "" {
			return false
		}
	}
	return true
}

// MissingLanguages lists the codes without authored text, in input order.
func (t LocalizedText) MissingLanguages(codes []string) []string {
	var out []string
	for _, c := range codes {
		if !t.Authored(c) {
			out = append(out, NormalizeLang(c))
		}
	}
	return out
}

// Clone returns an independent copy.
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// UnmarshalJSON accepts both {"en": "..."} and the legacy bare "..." form.
func (t *LocalizedText) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = nil
		return nil
	}
	switch raw.(type) {
	case string, map[string]any:
		*t = NormalizeText(raw)
		return nil
	default:
		return fmt.Errorf("localized text: unexpected JSON %s", string(b))
	}
}
