package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ncastellanos/eventgate/internal/cache"
	"github.com/ncastellanos/eventgate/internal/catalog"
	"github.com/ncastellanos/eventgate/internal/dateinfo"
	"github.com/ncastellanos/eventgate/internal/domain/event"
	"github.com/ncastellanos/eventgate/internal/normalize"
	"github.com/ncastellanos/eventgate/internal/observability"
	"github.com/ncastellanos/eventgate/internal/upstream"
)

// The catalog works over an immutable snapshot: one oversized upstream page
// per filter state, filtered/sorted/paged locally. Filter changes map to a
// different cache key, so a late answer for an old filter state can never
// serve the current one.
const (
	snapshotPage = 1
	snapshotSize = 500

	defaultPageSize = 12
	maxPageSize     = 100
)

type CatalogSource interface {
	FetchEvents(ctx context.Context, q upstream.ListQuery) ([]byte, error)
	FetchEvent(ctx context.Context, id string) ([]byte, error)
}

type EventsHandler struct {
	source CatalogSource
	norm   *normalize.Normalizer
	store  cache.Store
	prom   *observability.Prom
	log    *slog.Logger
	now    func() time.Time
}

func NewEventsHandler(source CatalogSource, norm *normalize.Normalizer, store cache.Store, prom *observability.Prom, log *slog.Logger) *EventsHandler {
	return &EventsHandler{
		source: source,
		norm:   norm,
		store:  store,
		prom:   prom,
		log:    log,
		now:    time.Now,
	}
}

// eventView is an Event enriched with the resolved date for the consumer.
type eventView struct {
	event.Event
	DateInfo dateinfo.DateInfo `json:"dateInfo"`
}

type listResponse struct {
	Data         []eventView `json:"data"`
	PageNumber   int         `json:"pageNumber"`
	PageSize     int         `json:"pageSize"`
	TotalPages   int         `json:"totalPages"`
	TotalRecords int         `json:"totalRecords"`
	HasPrevious  bool        `json:"hasPrevious"`
	HasNext      bool        `json:"hasNext"`
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	page := intQuery(ctx, "page", 1)
	pageSize := intQuery(ctx, "pageSize", defaultPageSize)

	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filters := event.FilterState{
		Search:     ctx.Query("search"),
		CategoryID: ctx.Query("categoryId"),
		Location:   ctx.Query("location"),
		PriceBand:  ctx.Query("priceBand"),
		PriceMin:   floatQuery(ctx, "priceMin"),
		PriceMax:   floatQuery(ctx, "priceMax"),
		DateFrom:   ctx.Query("dateFrom"),
		DateTo:     ctx.Query("dateTo"),
		Published:  boolQuery(ctx, "isPublished"),
	}
	sortKey := event.ParseSortKey(ctx.Query("sort"))

	snapshot, err := h.snapshot(ctx, filters)

	if err != nil {
		h.upstreamFailure(ctx, err)
		return
	}

	result := catalog.Apply(snapshot.Data, filters, sortKey, page, pageSize)

	RespondJSONWithETag(ctx, http.StatusOK, listResponse{
		Data:         h.views(result.PageItems),
		PageNumber:   result.Page,
		PageSize:     result.PageSize,
		TotalPages:   result.TotalPages,
		TotalRecords: result.TotalRecords,
		HasPrevious:  result.HasPrevious,
		HasNext:      result.HasNext,
	})
}

func (h *EventsHandler) GetEventByID(ctx *gin.Context) {
	id := ctx.Param("id")

	key := cache.EventKey(id)

	var e event.Event

	if h.store.Get(ctx, key, &e) {
		h.prom.CacheHits.WithLabelValues("event").Inc()
		RespondJSONWithETag(ctx, http.StatusOK, h.view(e))

		return
	}
	h.prom.CacheMisses.WithLabelValues("event").Inc()

	raw, err := h.source.FetchEvent(ctx, id)

	if err != nil {
		h.upstreamFailure(ctx, err)
		return
	}

	e, err = h.norm.One(raw)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Evento no encontrado")
			return
		}
		h.log.Warn("unrecognized event payload", "event_id", id, "error", err)
		RespondUpstreamUnavailable(ctx, "El servicio de eventos no está disponible")

		return
	}

	h.store.Set(ctx, key, e)

	RespondJSONWithETag(ctx, http.StatusOK, h.view(e))
}

// snapshot returns the normalized upstream snapshot for the given filter
// state, from cache when possible.
func (h *EventsHandler) snapshot(ctx *gin.Context, f event.FilterState) (event.PaginatedList, error) {
	key := cache.EventsListKey(
		snapshotPage, snapshotSize,
		f.CategoryID, f.Search, f.DateFrom, f.DateTo,
		f.PriceMin, f.PriceMax, f.Published,
	)

	var list event.PaginatedList

	if h.store.Get(ctx, key, &list) {
		h.prom.CacheHits.WithLabelValues("events_list").Inc()

		return list, nil
	}
	h.prom.CacheMisses.WithLabelValues("events_list").Inc()

	raw, err := h.source.FetchEvents(ctx, upstream.ListQuery{
		PageNumber:  snapshotPage,
		PageSize:    snapshotSize,
		CategoryID:  f.CategoryID,
		Search:      f.Search,
		DateFrom:    f.DateFrom,
		DateTo:      f.DateTo,
		PriceMin:    f.PriceMin,
		PriceMax:    f.PriceMax,
		IsPublished: f.Published,
	})

	if err != nil {
		return event.PaginatedList{}, err
	}

	list, err = h.norm.List(raw, normalize.PageParams{PageNumber: snapshotPage, PageSize: snapshotSize})

	if err != nil {
		return event.PaginatedList{}, err
	}

	h.store.Set(ctx, key, list)

	return list, nil
}

func (h *EventsHandler) view(e event.Event) eventView {
	return eventView{Event: e, DateInfo: dateinfo.Resolve(e.Date, h.now())}
}

func (h *EventsHandler) views(events []event.Event) []eventView {
	out := make([]eventView, 0, len(events))

	for _, e := range events {
		out = append(out, h.view(e))
	}

	return out
}

func statusErrorFrom(err error) (*upstream.StatusError, bool) {
	var se *upstream.StatusError

	ok := errors.As(err, &se)

	return se, ok
}

func (h *EventsHandler) upstreamFailure(ctx *gin.Context, err error) {
	if se, ok := statusErrorFrom(err); ok && se.Status == http.StatusNotFound {
		RespondNotFound(ctx, "Evento no encontrado")
		return
	}

	var shapeErr *normalize.ShapeError

	if errors.As(err, &shapeErr) {
		h.log.Warn("unrecognized catalog payload", "error", err)
	} else {
		h.log.Warn("upstream catalog call failed", "error", err)
	}

	RespondUpstreamUnavailable(ctx, "El servicio de eventos no está disponible")
}

// query parsing helpers, shared with the other read handlers

func intQuery(ctx *gin.Context, name string, fallback int) int {
	raw := ctx.Query(name)

	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)

	if err != nil || v < 1 {
		return fallback
	}

	return v
}

func floatQuery(ctx *gin.Context, name string) *float64 {
	raw := ctx.Query(name)

	if raw == "" {
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)

	if err != nil {
		return nil
	}

	return &v
}

func boolQuery(ctx *gin.Context, name string) *bool {
	raw := ctx.Query(name)

	if raw == "" {
		return nil
	}

	v, err := strconv.ParseBool(raw)

	if err != nil {
		return nil
	}

	return &v
}
