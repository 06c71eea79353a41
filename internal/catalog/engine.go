// Package catalog implements the filter/sort/paginate pass over an in-memory
// snapshot of normalized events. The pass is a pure transformation: it never
// mutates the snapshot and has no I/O, so every request operates on an
// immutable view even while a fresh snapshot is being fetched concurrently.
package catalog

import (
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ncastellanos/eventgate/internal/dateinfo"
	"github.com/ncastellanos/eventgate/internal/domain/event"
)

type Result struct {
	PageItems    []event.Event `json:"data"`
	Page         int           `json:"pageNumber"`
	PageSize     int           `json:"pageSize"`
	TotalPages   int           `json:"totalPages"`
	TotalRecords int           `json:"totalRecords"`
	HasPrevious  bool          `json:"hasPrevious"`
	HasNext      bool          `json:"hasNext"`
}

// Apply filters conjunctively, sorts stably by sortKey and slices the
// requested page. An out-of-range page is reset to the first page rather than
// rendered empty; the effective page is reported back in the result.
func Apply(events []event.Event, filters event.FilterState, sortKey event.SortKey, page, pageSize int) Result {
	if pageSize < 1 {
		pageSize = 1
	}

	filtered := filter(events, filters)
	sortEvents(filtered, sortKey)

	totalPages := int(math.Ceil(float64(len(filtered)) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 || page > totalPages {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	pageItems := filtered[start:end]
	if pageItems == nil {
		pageItems = []event.Event{}
	}

	return Result{
		PageItems:    pageItems,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		TotalRecords: len(filtered),
		HasPrevious:  page > 1,
		HasNext:      page < totalPages,
	}
}

// filter applies every provided constraint; an absent filter field matches
// everything. The result is a fresh slice, the input is left untouched.
func filter(events []event.Event, f event.FilterState) []event.Event {
	out := make([]event.Event, 0, len(events))

	for _, e := range events {
		if matches(e, f) {
			out = append(out, e)
		}
	}

	return out
}

func matches(e event.Event, f event.FilterState) bool {
	if f.Search != "" && !matchesSearch(e, f.Search) {
		return false
	}

	if f.CategoryID != "" && !matchesCategory(e, f.CategoryID) {
		return false
	}

	if f.Location != "" && !containsFold(e.Address, f.Location) {
		return false
	}

	if f.PriceBand != "" && !matchesPriceBand(e.Price, f.PriceBand) {
		return false
	}

	if f.PriceMin != nil && e.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && e.Price > *f.PriceMax {
		return false
	}

	if (f.DateFrom != "" || f.DateTo != "") && !matchesDateRange(e.Date, f.DateFrom, f.DateTo) {
		return false
	}

	if f.Published != nil && e.IsPublished != *f.Published {
		return false
	}

	return true
}

// search matches when ANY of title, description or location contains the
// query, case-insensitively.
func matchesSearch(e event.Event, query string) bool {
	return containsFold(e.Title, query) ||
		containsFold(e.Description, query) ||
		containsFold(e.Address, query)
}

func matchesCategory(e event.Event, value string) bool {
	if e.Category.ID == value || e.Category.Name == value {
		return true
	}

	for _, c := range e.Categories {
		if c == value {
			return true
		}
	}

	return false
}

// Named price bands used by the quick-filter controls. Ranges are inclusive,
// "100+" is strictly above its floor.
func matchesPriceBand(price float64, band string) bool {
	switch band {
	case "free":
		return price == 0
	case "0-25":
		return price >= 0 && price <= 25
	case "26-50":
		return price >= 26 && price <= 50
	case "51-100":
		return price >= 51 && price <= 100
	case "100+":
		return price > 100
	default:
		// unknown band imposes no constraint
		return true
	}
}

func matchesDateRange(rawDate, from, to string) bool {
	date, ok := dateinfo.Parse(rawDate)
	if !ok {
		// an event without a parseable date cannot fall inside a range
		return false
	}

	if from != "" {
		if f, ok := dateinfo.Parse(from); ok && date.Before(f) {
			return false
		}
	}

	if to != "" {
		if t, ok := dateinfo.Parse(to); ok && date.After(endOfDay(t)) {
			return false
		}
	}

	return true
}

// A bare "2023-09-05" upper bound means "through that day", not midnight.
func endOfDay(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}

// sortEvents sorts in place with a stable algorithm so equal keys preserve
// their original relative order.
func sortEvents(events []event.Event, key event.SortKey) {
	switch key {
	case event.SortPriceLow:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Price < events[j].Price
		})
	case event.SortPriceHigh:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Price > events[j].Price
		})
	case event.SortPopularity:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Attendees > events[j].Attendees
		})
	case event.SortName:
		c := collate.New(language.Spanish)
		sort.SliceStable(events, func(i, j int) bool {
			return c.CompareString(events[i].Title, events[j].Title) < 0
		})
	default: // SortDate
		sort.SliceStable(events, func(i, j int) bool {
			di, iok := dateinfo.Parse(events[i].Date)
			dj, jok := dateinfo.Parse(events[j].Date)

			// unparsable dates sort last, equal among themselves
			if !iok {
				return false
			}
			if !jok {
				return true
			}
			return di.Before(dj)
		})
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
