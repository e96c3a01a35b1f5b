package app

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"property_listings/internal/domain"
)

type Mode int

const (
	// ModeSingle replaces every text leaf with one resolved string.
	ModeSingle Mode = iota
	// ModeAll replaces every text leaf with a code -> text map over Codes.
	ModeAll
)

type ProjectOptions struct {
	Mode       Mode
	Lang       string   // ModeSingle target language
	Codes      []string // ModeAll languages, usually the listing languages
	Origin     string   // scheme://host used for asset URLs
	PropertyID string   // scopes AssetPath fields
}

// Projection is a content graph rendered for the wire.
type Projection struct {
	Content map[string]any `json:"content"`
	// Missing maps a text leaf path (e.g. "pages/0/sections/1/title") to the
	// codes that have no authored text there. It is computed from the raw
	// maps, never from the gap-filled output, and only in ModeAll.
	Missing map[string][]string `json:"missingTranslations,omitempty"`
}

// Project walks c once, resolving text leaves and asset paths. The input is
// never modified and list lengths are preserved at every level.
func Project(c domain.Content, opts ProjectOptions) Projection {
	p := &projector{opts: opts}
	if opts.Mode == ModeAll {
		p.missing = map[string][]string{}
		p.codes = make([]string, 0, len(opts.Codes))
		for _, code := range opts.Codes {
			p.codes = append(p.codes, domain.NormalizeLang(code))
		}
	}
	out, _ := p.walk(reflect.ValueOf(c), "").(map[string]any)
	return Projection{Content: out, Missing: p.missing}
}

// nodeKind tags the handful of shapes the content graph is built from.
type nodeKind uint8

const (
	nodeScalar nodeKind = iota
	nodeText
	nodeAsset
	nodeSharedAsset
	nodeIcon
	nodeObject
	nodeList
	nodeMap
	nodePointer
)

var (
	textType        = reflect.TypeOf(domain.LocalizedText{})
	assetType       = reflect.TypeOf(domain.AssetPath(""))
	sharedAssetType = reflect.TypeOf(domain.SharedAssetPath(""))
	iconType        = reflect.TypeOf(domain.IconRef(""))
)

func classify(t reflect.Type) nodeKind {
	switch t {
	case textType:
		return nodeText
	case assetType:
		return nodeAsset
	case sharedAssetType:
		return nodeSharedAsset
	case iconType:
		return nodeIcon
	}
	switch t.Kind() {
	case reflect.Struct:
		return nodeObject
	case reflect.Slice, reflect.Array:
		return nodeList
	case reflect.Map:
		return nodeMap
	case reflect.Pointer:
		return nodePointer
	default:
		return nodeScalar
	}
}

type fieldPlan struct {
	index int
	name  string
}

var plans sync.Map // reflect.Type -> []fieldPlan

func planFor(t reflect.Type) []fieldPlan {
	if v, ok := plans.Load(t); ok {
		return v.([]fieldPlan)
	}
	out := make([]fieldPlan, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			n, _, _ := strings.Cut(tag, ",")
			if n == "-" {
				continue
			}
			if n != "" {
				name = n
			}
		}
		out = append(out, fieldPlan{index: i, name: name})
	}
	plans.Store(t, out)
	return out
}

type projector struct {
	opts    ProjectOptions
	codes   []string
	missing map[string][]string
}

func join(path, part string) string {
	if path == "" {
		return part
	}
	return path + "/" + part
}

func (p *projector) walk(v reflect.Value, path string) any {
	switch classify(v.Type()) {
	case nodeText:
		return p.text(v.Interface().(domain.LocalizedText), path)
	case nodeAsset:
		return ResolvePropertyAsset(p.opts.Origin, p.opts.PropertyID, v.String())
	case nodeSharedAsset:
		return ResolveGeneric(p.opts.Origin, v.String())
	case nodeIcon:
		return v.String()
	case nodePointer:
		if v.IsNil() {
			return nil
		}
		return p.walk(v.Elem(), path)
	case nodeObject:
		plan := planFor(v.Type())
		out := make(map[string]any, len(plan))
		for _, f := range plan {
			out[f.name] = p.walk(v.Field(f.index), join(path, f.name))
		}
		return out
	case nodeList:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = p.walk(v.Index(i), join(path, strconv.Itoa(i)))
		}
		return out
	case nodeMap:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			out[k] = p.walk(iter.Value(), join(path, k))
		}
		return out
	default:
		return v.Interface()
	}
}

func (p *projector) text(t domain.LocalizedText, path string) any {
	if p.opts.Mode != ModeAll {
		return t.ResolveDefault(p.opts.Lang)
	}
	// An entirely blank field is empty content, not a missing translation.
	if !t.IsEmpty() {
		if miss := t.MissingLanguages(p.codes); len(miss) > 0 {
			p.missing[path] = miss
		}
	}
	return t.ProjectAllLanguages(p.codes)
}
