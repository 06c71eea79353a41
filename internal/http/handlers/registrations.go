package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ncastellanos/eventgate/internal/http/middlewares"
	"github.com/ncastellanos/eventgate/internal/observability"
	"github.com/ncastellanos/eventgate/internal/registration"
)

// RegistrationsHandler drives the per (user, event) reconciler over HTTP.
// One POST performs request-plus-confirm in a single round trip; the
// reconciler's single-flight guard still holds across concurrent requests.
type RegistrationsHandler struct {
	registry *registration.Registry
	prom     *observability.Prom
	log      *slog.Logger
}

func NewRegistrationsHandler(registry *registration.Registry, prom *observability.Prom, log *slog.Logger) *RegistrationsHandler {
	return &RegistrationsHandler{
		registry: registry,
		prom:     prom,
		log:      log,
	}
}

func (h *RegistrationsHandler) Status(ctx *gin.Context) {
	rec, ok := h.reconciler(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, rec.Sync(ctx.Request.Context()))
}

func (h *RegistrationsHandler) Register(ctx *gin.Context) {
	rec, ok := h.reconciler(ctx)

	if !ok {
		return
	}

	status := rec.Sync(ctx.Request.Context())

	if status.State == registration.StateRegistered {
		RespondConflict(ctx, "already_registered", "Ya estás inscrito en este evento")
		return
	}

	status = rec.RequestAction()

	if status.State != registration.StatePending {
		// mid-submit or unresolved; report the snapshot instead of queueing
		ctx.JSON(http.StatusAccepted, status)
		return
	}

	status = rec.Confirm(ctx.Request.Context())

	if status.State != registration.StateRegistered {
		h.prom.RegistrationResults.WithLabelValues("register", "rejected").Inc()
		RespondConflict(ctx, "registration_failed", status.Message)

		return
	}

	h.prom.RegistrationResults.WithLabelValues("register", "ok").Inc()

	ctx.JSON(http.StatusCreated, status)
}

func (h *RegistrationsHandler) Unregister(ctx *gin.Context) {
	rec, ok := h.reconciler(ctx)

	if !ok {
		return
	}

	status := rec.Sync(ctx.Request.Context())

	if status.State == registration.StateNotRegistered {
		RespondConflict(ctx, "not_registered", "No estás inscrito en este evento")
		return
	}

	status = rec.RequestAction()

	if status.State != registration.StatePending {
		ctx.JSON(http.StatusAccepted, status)
		return
	}

	status = rec.Confirm(ctx.Request.Context())

	if status.State != registration.StateNotRegistered {
		h.prom.RegistrationResults.WithLabelValues("unregister", "rejected").Inc()
		RespondConflict(ctx, "unregister_failed", status.Message)

		return
	}

	h.prom.RegistrationResults.WithLabelValues("unregister", "ok").Inc()

	ctx.JSON(http.StatusOK, status)
}

func (h *RegistrationsHandler) reconciler(ctx *gin.Context) (*registration.Reconciler, bool) {
	session := middlewares.SessionFrom(ctx)

	if session == nil || session.UserID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Debes iniciar sesión para continuar")
		return nil, false
	}

	eventID := ctx.Param("id")

	if eventID == "" {
		RespondBadRequest(ctx, "Missing event id", nil)
		return nil, false
	}

	return h.registry.For(session.UserID, middlewares.TokenFrom(ctx), eventID), true
}
