package event

import "errors"

// Event is the canonical, fully defaulted shape every catalog record takes
// after normalization. Downstream code (engine, handlers, templates on the
// consumer side) may assume total field presence: no pointers, no optional
// fields, ImageURL always absolute or API-internal.
type Event struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	ImageURL          string   `json:"imageUrl"`
	Address           string   `json:"address"`
	Date              string   `json:"date"` // raw ISO-ish string, resolved lazily by dateinfo
	Duration          float64  `json:"duration"`
	Price             float64  `json:"price"`
	LimitParticipants int      `json:"limitParticipants"`
	Attendees         int      `json:"attendees"`
	IsPublished       bool     `json:"isPublished"`
	RequireAcceptance bool     `json:"requireAcceptance"`
	Active            bool     `json:"active"`
	Categories        []string `json:"categories"`
	Category          Category `json:"category"`
	Organizer         Organizer `json:"organizer"`
}

type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Organizer struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
}

// Defaults substituted at the normalization boundary for absent fields.
const (
	DefaultTitle       = "Sin título"
	DefaultDescription = "Sin descripción"
	DefaultDuration    = 1
	PlaceholderImage   = "/images/event-placeholder.png"
)

var ErrNotFound = errors.New("event not found")

// PaginatedList wraps one page of normalized events together with the
// pagination metadata the upstream envelope carries.
type PaginatedList struct {
	Data         []Event `json:"data"`
	PageNumber   int     `json:"pageNumber"`
	PageSize     int     `json:"pageSize"`
	TotalPages   int     `json:"totalPages"`
	TotalRecords int     `json:"totalRecords"`
	HasPrevious  bool    `json:"hasPrevious"`
	HasNext      bool    `json:"hasNext"`
}

// FilterState is the full set of catalog filters. Fields are independently
// optional; empty string / nil means "no constraint". The engine treats a
// FilterState as an immutable value, replaced wholesale on every change.
type FilterState struct {
	Search     string
	CategoryID string
	Location   string
	PriceBand  string // "", "free", "0-25", "26-50", "51-100", "100+"
	PriceMin   *float64
	PriceMax   *float64
	DateFrom   string
	DateTo     string
	Published  *bool
}

type SortKey string

const (
	SortDate       SortKey = "date"
	SortPriceLow   SortKey = "price-low"
	SortPriceHigh  SortKey = "price-high"
	SortPopularity SortKey = "popularity"
	SortName       SortKey = "name"
)

// ParseSortKey falls back to the date sort for unknown values rather than
// rejecting the request.
func ParseSortKey(raw string) SortKey {
	switch SortKey(raw) {
	case SortDate, SortPriceLow, SortPriceHigh, SortPopularity, SortName:
		return SortKey(raw)
	default:
		return SortDate
	}
}
