// Package normalize converts the heterogeneous payloads served by the
// upstream ticketing API into the canonical Event/PaginatedList shape. All
// defensive field handling lives here, exactly once: downstream code never
// null-checks a catalog field again.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/ncastellanos/eventgate/internal/domain/event"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ShapeError means the payload matched none of the recognized envelope
// shapes. It is not retried and surfaces as a generic "couldn't load events"
// failure, never a guess.
type ShapeError struct {
	Got string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unrecognized response shape: %s", e.Got)
}

// PageParams carries the page the caller asked for, used to synthesize an
// envelope when the upstream answers with a bare array.
type PageParams struct {
	PageNumber int
	PageSize   int
}

type Normalizer struct {
	apiHost string
}

// New builds a Normalizer that resolves relative image paths against the
// upstream origin. baseURL is the configured API base; a trailing "/api"
// segment is stripped to obtain the host serving static assets.
func New(baseURL string) *Normalizer {
	host := strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api")

	return &Normalizer{apiHost: host}
}

// List normalizes a raw catalog response. Three shapes are recognized, in
// priority order:
//  1. standard envelope: {data:[...], pageNumber, pageSize, ...}
//  2. nested custom envelope: {events:{data:[...], pageNumber, ...}}
//  3. bare array: [...]
//
// Anything else is a ShapeError. Individually broken items inside a
// recognized shape are dropped, not fatal.
func (n *Normalizer) List(raw []byte, requested PageParams) (event.PaginatedList, error) {
	var decoded any

	if err := json.Unmarshal(raw, &decoded); err != nil {
		return event.PaginatedList{}, &ShapeError{Got: "invalid json"}
	}

	switch v := decoded.(type) {
	case map[string]any:
		if isEnvelope(v) {
			return n.fromEnvelope(v), nil
		}

		if nested, ok := v["events"].(map[string]any); ok && isEnvelope(nested) {
			return n.fromEnvelope(nested), nil
		}

		return event.PaginatedList{}, &ShapeError{Got: "object without data or events envelope"}

	case []any:
		return n.fromBareArray(v, requested), nil

	default:
		return event.PaginatedList{}, &ShapeError{Got: fmt.Sprintf("%T", decoded)}
	}
}

// One returns the normalized form of a single event payload. Inactive or
// soft-deleted records resolve to event.ErrNotFound rather than leaking a
// record listings would have hidden.
func (n *Normalizer) One(raw []byte) (event.Event, error) {
	var decoded any

	if err := json.Unmarshal(raw, &decoded); err != nil {
		return event.Event{}, &ShapeError{Got: "invalid json"}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return event.Event{}, &ShapeError{Got: fmt.Sprintf("%T", decoded)}
	}

	e, keep := n.Item(obj)
	if !keep {
		return event.Event{}, event.ErrNotFound
	}
	return e, nil
}

// isEnvelope is the structural predicate for the standard shape: the only
// hard requirement is a data array, pagination fields are clamped later.
func isEnvelope(obj map[string]any) bool {
	_, ok := obj["data"].([]any)
	return ok
}

func (n *Normalizer) fromEnvelope(obj map[string]any) event.PaginatedList {
	items, _ := obj["data"].([]any)
	data := n.items(items)

	pageSize := clampMin(intField(obj, "pageSize", len(data)), 1)

	list := event.PaginatedList{
		Data:         capLength(data, pageSize),
		PageNumber:   clampMin(intField(obj, "pageNumber", 1), 1),
		PageSize:     pageSize,
		TotalPages:   clampMin(intField(obj, "totalPages", 1), 1),
		TotalRecords: clampMin(intField(obj, "totalRecords", len(data)), 0),
		HasPrevious:  boolField(obj, "hasPrevious"),
		HasNext:      boolField(obj, "hasNext"),
	}

	return list
}

func (n *Normalizer) fromBareArray(items []any, requested PageParams) event.PaginatedList {
	data := n.items(items)

	pageNumber := clampMin(requested.PageNumber, 1)
	pageSize := requested.PageSize
	if pageSize < 1 {
		pageSize = max(len(data), 1)
	}

	totalPages := clampMin(int(math.Ceil(float64(len(data))/float64(pageSize))), 1)

	return event.PaginatedList{
		Data:         capLength(data, pageSize),
		PageNumber:   pageNumber,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		TotalRecords: len(data),
		HasPrevious:  pageNumber > 1,
		HasNext:      pageNumber < totalPages,
	}
}

func (n *Normalizer) items(raw []any) []event.Event {
	// never nil: failure to parse individual items yields an empty page
	out := make([]event.Event, 0, len(raw))

	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		e, keep := n.Item(obj)
		if keep {
			out = append(out, e)
		}
	}

	return out
}

// Item maps one raw catalog object to a total Event. The second return is
// false when the record must be excluded from listings: explicitly inactive
// or soft-deleted.
func (n *Normalizer) Item(obj map[string]any) (event.Event, bool) {
	if active, present := obj["active"].(bool); present && !active {
		return event.Event{}, false
	}

	if deletedAt, present := obj["deletedAt"]; present && deletedAt != nil {
		return event.Event{}, false
	}

	e := event.Event{
		ID:                stringID(obj["id"]),
		Title:             stringField(obj, event.DefaultTitle, "title", "name"),
		Description:       stringField(obj, event.DefaultDescription, "description"),
		ImageURL:          n.RewriteImageURL(stringField(obj, "", "imageUrl", "image")),
		Address:           stringField(obj, "", "address", "location"),
		Date:              stringField(obj, "", "date"),
		Duration:          floatField(obj, "duration", event.DefaultDuration),
		Price:             floatField(obj, "price", 0),
		LimitParticipants: int(floatField(obj, "limitParticipants", 0)),
		Attendees:         int(floatField(obj, "attendees", floatField(obj, "participants", 0))),
		IsPublished:       boolField(obj, "isPublished"),
		RequireAcceptance: boolField(obj, "requireAcceptance"),
		Active:            true,
		Categories:        categorySet(obj),
		Category:          categoryEntity(obj["category"]),
		Organizer:         organizerEntity(obj["organizer"]),
	}

	return e, true
}

// RewriteImageURL guarantees the invariant that every surfaced image URL is
// fetchable: absolute URLs and internal /api/ paths pass through, anything
// else (including the substituted placeholder) is resolved against the
// upstream host with a single leading slash.
func (n *Normalizer) RewriteImageURL(img string) string {
	if img == "" {
		img = event.PlaceholderImage
	}

	if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") || strings.HasPrefix(img, "/api/") {
		return img
	}

	return n.apiHost + "/" + strings.TrimLeft(img, "/")
}

func categorySet(obj map[string]any) []string {
	if raw, ok := obj["categories"].([]any); ok {
		out := make([]string, 0, len(raw))
		for _, c := range raw {
			if s, ok := c.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	// single category reference collapses into a one-element set
	cat := categoryEntity(obj["category"])
	if cat.Name != "" {
		return []string{cat.Name}
	}
	return []string{}
}

func categoryEntity(raw any) event.Category {
	obj, ok := raw.(map[string]any)
	if !ok {
		return event.Category{Active: true}
	}

	active := true
	if a, present := obj["active"].(bool); present {
		active = a
	}

	return event.Category{
		ID:     stringID(obj["id"]),
		Name:   stringField(obj, "", "name"),
		Active: active,
	}
}

func organizerEntity(raw any) event.Organizer {
	obj, ok := raw.(map[string]any)
	if !ok {
		return event.Organizer{}
	}

	return event.Organizer{
		ID:       stringID(obj["id"]),
		UserName: stringField(obj, "", "userName", "name"),
		Email:    stringField(obj, "", "email"),
	}
}

// Categories normalizes the category listing endpoint, which answers with a
// bare array, {categories:[...]} or {data:[...]}. Only active, non-deleted
// entries with a name survive; the result is sorted alphabetically.
func (n *Normalizer) Categories(raw []byte) ([]event.Category, error) {
	var decoded any

	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ShapeError{Got: "invalid json"}
	}

	var items []any

	switch v := decoded.(type) {
	case []any:
		items = v
	case map[string]any:
		if arr, ok := v["categories"].([]any); ok {
			items = arr
		} else if arr, ok := v["data"].([]any); ok {
			items = arr
		} else {
			return nil, &ShapeError{Got: "object without categories or data array"}
		}
	default:
		return nil, &ShapeError{Got: fmt.Sprintf("%T", decoded)}
	}

	out := make([]event.Category, 0, len(items))

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if active, present := obj["active"].(bool); present && !active {
			continue
		}
		if deletedAt, present := obj["deletedAt"]; present && deletedAt != nil {
			continue
		}

		cat := event.Category{
			ID:     stringID(obj["id"]),
			Name:   stringField(obj, "", "name"),
			Active: true,
		}
		if cat.Name == "" {
			continue
		}

		out = append(out, cat)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}

// Field extraction helpers. Numbers arrive as float64 from the JSON decoder;
// ids may legitimately be strings or numbers upstream.

func stringID(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func stringField(obj map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func floatField(obj map[string]any, key string, fallback float64) float64 {
	if f, ok := obj[key].(float64); ok {
		return f
	}
	return fallback
}

func intField(obj map[string]any, key string, fallback int) int {
	if f, ok := obj[key].(float64); ok {
		return int(f)
	}
	return fallback
}

func boolField(obj map[string]any, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

func clampMin(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}

func capLength(data []event.Event, pageSize int) []event.Event {
	if len(data) > pageSize {
		return data[:pageSize]
	}
	return data
}
