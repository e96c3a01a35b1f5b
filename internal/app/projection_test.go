package app_test

import (
	"reflect"
	"testing"

	"property_listings/internal/app"
	"property_listings/internal/domain"
)

func sampleContent() domain.Content {
	c := domain.InitialContent(domain.Text("en", "Villa Rosa", "fr", "Villa Rose"))
	c.HeroImages = []domain.Image{
		{Path: "hero.jpg", Alt: domain.Text("en", "Pool")},
		{Path: "https://cdn.example.com/x.jpg"},
	}
	c.Pages = []domain.Page{{
		Slug:  "about",
		Title: domain.Text("en", "About", "fr", "A propos"),
		Sections: []domain.Section{
			{Key: "a", Title: domain.Text("en", "Garden")},
			{Key: "b", Title: domain.Text("fr", "Cuisine"), Images: []domain.Image{{Path: "/data/properties/villa-rosa/k.jpg"}}},
		},
	}}
	c.Facilities = []domain.FacilityGroup{{
		Icon:  "fa-solid:wifi",
		Title: domain.Text("en", "Connectivity"),
		Items: []domain.FacilityItem{{Icon: "fa-solid:tv", Label: domain.Text("en", "TV")}},
	}}
	c.RentalUnits = []domain.RentalUnit{{
		Key:  "main",
		Name: domain.Text("en", "Main house"),
		Availability: domain.Availability{
			CalendarSnapshot: &domain.SharedImage{Path: "uploads/cal/main.png"},
		},
	}}
	c.GuestInfo = &domain.GuestInfo{
		HouseRules: []domain.LocalizedText{domain.Text("en", "No smoking"), {}},
		Equipment: []domain.Equipment{{
			Name:        domain.Text("en", "Oven"),
			Attachments: []domain.Document{{Path: "manuals/oven.pdf"}},
		}},
	}
	return c
}

func get(t *testing.T, v any, path ...any) any {
	t.Helper()
	for _, p := range path {
		switch k := p.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				t.Fatalf("at %v: not an object: %T", p, v)
			}
			v = m[k]
		case int:
			l, ok := v.([]any)
			if !ok || k >= len(l) {
				t.Fatalf("at %v: not a list or short: %T", p, v)
			}
			v = l[k]
		}
	}
	return v
}

func TestProject_SingleLanguage(t *testing.T) {
	c := sampleContent()
	p := app.Project(c, app.ProjectOptions{
		Mode: app.ModeSingle, Lang: "fr",
		Origin: "https://site.example", PropertyID: "villa-rosa",
	})

	if got := get(t, p.Content, "name"); got != "Villa Rose" {
		t.Fatalf("name: %v", got)
	}
	// fr missing -> en fallback
	if got := get(t, p.Content, "pages", 0, "sections", 0, "title"); got != "Garden" {
		t.Fatalf("fallback title: %v", got)
	}
	if got := get(t, p.Content, "heroImages", 0, "path"); got != "https://site.example/data/properties/villa-rosa/hero.jpg" {
		t.Fatalf("asset: %v", got)
	}
	if got := get(t, p.Content, "heroImages", 1, "path"); got != "https://cdn.example.com/x.jpg" {
		t.Fatalf("absolute asset: %v", got)
	}
	if got := get(t, p.Content, "pages", 0, "sections", 1, "images", 0, "path"); got != "https://site.example/data/properties/villa-rosa/k.jpg" {
		t.Fatalf("prefixed asset: %v", got)
	}
	if got := get(t, p.Content, "rentalUnits", 0, "availability", "calendarSnapshot", "path"); got != "https://site.example/uploads/cal/main.png" {
		t.Fatalf("shared asset: %v", got)
	}
	if got := get(t, p.Content, "guestInfo", "equipment", 0, "attachments", 0, "path"); got != "https://site.example/data/properties/villa-rosa/manuals/oven.pdf" {
		t.Fatalf("attachment: %v", got)
	}
	if got := get(t, p.Content, "facilities", 0, "icon"); got != "fa-solid:wifi" {
		t.Fatalf("icon must pass through: %v", got)
	}
	if got := get(t, p.Content, "guestInfo", "houseRules", 1); got != "" {
		t.Fatalf("blank text: %v", got)
	}
	if p.Missing != nil {
		t.Fatalf("single mode reports no missing translations: %v", p.Missing)
	}
}

func TestProject_PreservesListLengthsAndInput(t *testing.T) {
	c := sampleContent()
	before, _ := c.Clone()
	p := app.Project(c, app.ProjectOptions{Mode: app.ModeSingle, Lang: "en", PropertyID: "villa-rosa"})

	checks := []struct {
		path []any
		want int
	}{
		{[]any{"heroImages"}, 2},
		{[]any{"pages", 0, "sections"}, 2},
		{[]any{"pages", 0, "gallery"}, 0},
		{[]any{"facilities", 0, "items"}, 1},
		{[]any{"guestInfo", "houseRules"}, 2},
		{[]any{"rentalUnits"}, 1},
	}
	for _, ck := range checks {
		v := get(t, p.Content, ck.path...)
		if v == nil && ck.want == 0 {
			continue
		}
		if l, ok := v.([]any); !ok || len(l) != ck.want {
			t.Errorf("%v: want len %d, got %#v", ck.path, ck.want, v)
		}
	}
	if !reflect.DeepEqual(c, before) {
		t.Fatalf("projection mutated its input")
	}
}

func TestProject_AllLanguagesReportsMissing(t *testing.T) {
	c := sampleContent()
	p := app.Project(c, app.ProjectOptions{Mode: app.ModeAll, Codes: []string{"en", "fr"}, PropertyID: "villa-rosa"})

	title, ok := get(t, p.Content, "pages", 0, "sections", 1, "title").(map[string]string)
	if !ok {
		t.Fatalf("expected per-language map")
	}
	// gap filled for display, still reported as missing
	if title["fr"] != "Cuisine" || title["en"] != "Cuisine" {
		t.Fatalf("unexpected fill: %v", title)
	}
	if got := p.Missing["pages/0/sections/1/title"]; !reflect.DeepEqual(got, []string{"en"}) {
		t.Fatalf("missing for section title: %v", got)
	}
	if got := p.Missing["heroImages/0/alt"]; !reflect.DeepEqual(got, []string{"fr"}) {
		t.Fatalf("missing for alt: %v", got)
	}
	if _, ok := p.Missing["name"]; ok {
		t.Fatalf("fully translated name reported missing")
	}
	// blank leaves are empty content, not gaps
	if _, ok := p.Missing["guestInfo/houseRules/1"]; ok {
		t.Fatalf("blank house rule reported missing")
	}
	if _, ok := p.Missing["summary"]; ok {
		t.Fatalf("blank summary reported missing")
	}
	if got := p.Missing["guestInfo/houseRules/0"]; !reflect.DeepEqual(got, []string{"fr"}) {
		t.Fatalf("missing house rule: %v", got)
	}
}
