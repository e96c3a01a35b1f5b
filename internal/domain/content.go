package domain

import (
	"encoding/json"
)

// AssetPath is an image or document path stored relative to the property's
// own asset folder (data/properties/{id}/...), or an absolute URL.
type AssetPath string

// SharedAssetPath is a path relative to the site root, not scoped to a property.
type SharedAssetPath string

// IconRef is a "style:name" icon token. It is not a path.
type IconRef string

// Content is the editable content graph of a property. Draft and published
// snapshots share this shape. Fields intentionally carry no omitempty so a
// JSON round trip preserves empty lists.
type Content struct {
	Name          LocalizedText     `json:"name"`
	Summary       LocalizedText     `json:"summary"`
	HeroImages    []Image           `json:"heroImages"`
	Pages         []Page            `json:"pages"`
	Places        *PlacesPage       `json:"places"`
	Facilities    []FacilityGroup   `json:"facilities"`
	Location      *Location         `json:"location"`
	ExternalLinks []ExternalLink    `json:"externalLinks"`
	PDFs          []Document        `json:"pdfs"`
	Sales         *SalesParticulars `json:"sales"`
	RentalUnits   []RentalUnit      `json:"rentalUnits"`
	GuestInfo     *GuestInfo        `json:"guestInfo"`
}

type Image struct {
	Path    AssetPath     `json:"path"`
	Alt     LocalizedText `json:"alt"`
	Caption LocalizedText `json:"caption"`
}

type Page struct {
	Slug      string        `json:"slug"`
	Title     LocalizedText `json:"title"`
	Intro     LocalizedText `json:"intro"`
	HeroImage *Image        `json:"heroImage"`
	Sections  []Section     `json:"sections"`
	Gallery   []Image       `json:"gallery"`
}

type Section struct {
	Key       string        `json:"key"`
	Title     LocalizedText `json:"title"`
	Body      LocalizedText `json:"body"`
	HeroImage *Image        `json:"heroImage"`
	Images    []Image       `json:"images"`
}

// PlacesPage lists things to see and do around the property.
type PlacesPage struct {
	Title    LocalizedText `json:"title"`
	Intro    LocalizedText `json:"intro"`
	Sections []Section     `json:"sections"`
	Items    []PlaceItem   `json:"items"`
}

// PlaceItem is a single experience (restaurant, beach, walk...).
type PlaceItem struct {
	Category    string        `json:"category"`
	Icon        IconRef       `json:"icon"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`
	HeroImage   *Image        `json:"heroImage"`
	Links       []Link        `json:"links"`
}

type Link struct {
	Label LocalizedText `json:"label"`
	URL   string        `json:"url"`
}

type FacilityGroup struct {
	Icon  IconRef        `json:"icon"`
	Title LocalizedText  `json:"title"`
	Items []FacilityItem `json:"items"`
}

type FacilityItem struct {
	Icon  IconRef       `json:"icon"`
	Label LocalizedText `json:"label"`
}

type Location struct {
	Address    LocalizedText `json:"address"`
	Directions LocalizedText `json:"directions"`
	Lat        *float64      `json:"lat"`
	Lng        *float64      `json:"lng"`
	MapURL     string        `json:"mapUrl"`
}

type ExternalLink struct {
	Icon  IconRef       `json:"icon"`
	Label LocalizedText `json:"label"`
	URL   string        `json:"url"`
}

// Document is a downloadable file such as a brochure PDF.
type Document struct {
	Title LocalizedText `json:"title"`
	Path  AssetPath     `json:"path"`
}

type SalesParticulars struct {
	Price       *float64      `json:"price"`
	Currency    string        `json:"currency"`
	Tenure      LocalizedText `json:"tenure"`
	Description LocalizedText `json:"description"`
	Documents   []Document    `json:"documents"`
}

type RentalUnit struct {
	Key          string        `json:"key"`
	Name         LocalizedText `json:"name"`
	Description  LocalizedText `json:"description"`
	Sleeps       int           `json:"sleeps"`
	Bedrooms     int           `json:"bedrooms"`
	HeroImage    *Image        `json:"heroImage"`
	Images       []Image       `json:"images"`
	Rates        []Rate        `json:"rates"`
	Conditions   []Condition   `json:"conditions"`
	Bookings     []Booking     `json:"bookings"`
	Availability Availability  `json:"availability"`
	ICalURL      string        `json:"icalUrl"`
}

// Rate is a seasonal price band. Dates are YYYY-MM-DD.
type Rate struct {
	Label     LocalizedText `json:"label"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Nightly   float64       `json:"nightly"`
	Weekly    float64       `json:"weekly"`
	Currency  string        `json:"currency"`
	MinNights int           `json:"minNights"`
}

type Condition struct {
	Title LocalizedText `json:"title"`
	Text  LocalizedText `json:"text"`
}

// Booking is a manually entered stay. Dates are YYYY-MM-DD, end inclusive.
type Booking struct {
	Start string        `json:"start"`
	End   string        `json:"end"`
	Guest string        `json:"guest"`
	Note  LocalizedText `json:"note"`
}

type Availability struct {
	Notes LocalizedText `json:"notes"`
	// CalendarSnapshot is an image rendered by the site tooling under the shared uploads root.
	CalendarSnapshot *SharedImage `json:"calendarSnapshot"`
}

type SharedImage struct {
	Path SharedAssetPath `json:"path"`
	Alt  LocalizedText   `json:"alt"`
}

type GuestInfo struct {
	Welcome    LocalizedText   `json:"welcome"`
	CheckIn    LocalizedText   `json:"checkIn"`
	CheckOut   LocalizedText   `json:"checkOut"`
	HouseRules []LocalizedText `json:"houseRules"`
	WifiName   string          `json:"wifiName"`
	Equipment  []Equipment     `json:"equipment"`
	Contacts   []Contact       `json:"contacts"`
}

type Equipment struct {
	Icon         IconRef       `json:"icon"`
	Name         LocalizedText `json:"name"`
	Instructions LocalizedText `json:"instructions"`
	Attachments  []Document    `json:"attachments"`
}

type Contact struct {
	Role  LocalizedText `json:"role"`
	Name  string        `json:"name"`
	Phone string        `json:"phone"`
	Email string        `json:"email"`
}

// InitialContent is the minimal draft a new property starts with, and what
// Revert falls back to when nothing was ever published.
func InitialContent(name LocalizedText) Content {
	return Content{
		Name:          name.Clone(),
		Summary:       LocalizedText{},
		HeroImages:    []Image{},
		Pages:         []Page{},
		Facilities:    []FacilityGroup{},
		ExternalLinks: []ExternalLink{},
		PDFs:          []Document{},
		RentalUnits:   []RentalUnit{},
	}
}

// Clone deep-copies the graph through its JSON form, which is also its
// storage form, so a clone is exactly what a reader of the store would see.
func (c Content) Clone() (Content, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return Content{}, err
	}
	var out Content
	if err := json.Unmarshal(b, &out); err != nil {
		return Content{}, err
	}
	return out, nil
}
