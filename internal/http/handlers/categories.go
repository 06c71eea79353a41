package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ncastellanos/eventgate/internal/cache"
	"github.com/ncastellanos/eventgate/internal/domain/event"
	"github.com/ncastellanos/eventgate/internal/normalize"
	"github.com/ncastellanos/eventgate/internal/observability"
)

type CategoriesSource interface {
	FetchCategories(ctx context.Context) ([]byte, error)
}

type CategoriesHandler struct {
	source CategoriesSource
	norm   *normalize.Normalizer
	store  cache.Store
	prom   *observability.Prom
	log    *slog.Logger
}

func NewCategoriesHandler(source CategoriesSource, norm *normalize.Normalizer, store cache.Store, prom *observability.Prom, log *slog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		source: source,
		norm:   norm,
		store:  store,
		prom:   prom,
		log:    log,
	}
}

func (h *CategoriesHandler) ListCategories(ctx *gin.Context) {
	key := cache.CategoriesKey()

	var categories []event.Category

	if h.store.Get(ctx, key, &categories) {
		h.prom.CacheHits.WithLabelValues("categories").Inc()
		RespondJSONWithETag(ctx, http.StatusOK, gin.H{"categories": categories})

		return
	}
	h.prom.CacheMisses.WithLabelValues("categories").Inc()

	raw, err := h.source.FetchCategories(ctx)

	if err != nil {
		h.log.Warn("upstream categories call failed", "error", err)
		RespondUpstreamUnavailable(ctx, "El servicio de categorías no está disponible")

		return
	}

	categories, err = h.norm.Categories(raw)

	if err != nil {
		h.log.Warn("unrecognized categories payload", "error", err)
		RespondUpstreamUnavailable(ctx, "El servicio de categorías no está disponible")

		return
	}

	h.store.Set(ctx, key, categories)

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"categories": categories})
}
