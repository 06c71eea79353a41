package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ncastellanos/eventgate/internal/auth"
	"github.com/ncastellanos/eventgate/internal/cache"
	"github.com/ncastellanos/eventgate/internal/config"
	"github.com/ncastellanos/eventgate/internal/http/handlers"
	"github.com/ncastellanos/eventgate/internal/http/middlewares"
	"github.com/ncastellanos/eventgate/internal/normalize"
	"github.com/ncastellanos/eventgate/internal/observability"
	"github.com/ncastellanos/eventgate/internal/registration"
	"github.com/ncastellanos/eventgate/internal/upstream"
)

const maxRequestBody = 1 << 20 // none of our payloads come close

// NewRouter wires the full gateway surface: catalog reads, auth bridge,
// registration state machine, organizer proxy, health and metrics.
func NewRouter(
	cfg config.Config,
	log *slog.Logger,
	client *upstream.Client,
	store cache.Store,
	prom *observability.Prom,
	metrics nethttp.Handler,
	readiness ...handlers.ReadyCheck,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxRequestBody))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.Session())
	r.Use(otelgin.Middleware("eventgate"))
	r.Use(prom.GinHandleMiddleware())

	limiter := middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	r.Use(limiter.Middleware(middlewares.KeyByUserOrIP))

	// health + metrics

	h := handlers.NewHealthHandler(readiness...)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	// wire up the catalog pipeline

	norm := normalize.New(cfg.APIBaseURL)

	eventsHandler := handlers.NewEventsHandler(client, norm, store, prom, log)
	categoriesHandler := handlers.NewCategoriesHandler(client, norm, store, prom, log)

	r.GET("/events", eventsHandler.ListEvents)
	r.GET("/events/:id", eventsHandler.GetEventByID)
	r.GET("/categories", categoriesHandler.ListCategories)

	// auth bridge

	bridge := auth.NewBridge(client, cfg.APIBaseURL)
	authHandler := handlers.NewAuthHandler(bridge, log)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/verify-email", authHandler.VerifyEmail)
		authGroup.POST("/resend-verification", authHandler.ResendVerification)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/session", authHandler.Session)
		authGroup.GET("/external/:provider", authHandler.ExternalProvider)
	}

	// registration state machine, one reconciler per (user, event)

	registry := registration.NewRegistry(client.Registrations())
	registrationsHandler := handlers.NewRegistrationsHandler(registry, prom, log)

	regGroup := r.Group("/events/:id/registration", middlewares.RequireSession())
	{
		regGroup.GET("", registrationsHandler.Status)
		regGroup.POST("", registrationsHandler.Register)
		regGroup.DELETE("", registrationsHandler.Unregister)
	}

	// organizer proxy

	organizerHandler := handlers.NewOrganizerHandler(client, log)

	orgGroup := r.Group("/organizer", middlewares.RequireSession())
	{
		orgGroup.POST("/events", organizerHandler.CreateEvent)
	}

	return r
}
