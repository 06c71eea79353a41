package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ncastellanos/eventgate/internal/auth"
	"github.com/ncastellanos/eventgate/internal/http/middlewares"
)

type EventCreator interface {
	CreateEvent(ctx context.Context, token string, payload any) ([]byte, error)
}

type OrganizerHandler struct {
	client EventCreator
	log    *slog.Logger
}

func NewOrganizerHandler(client EventCreator, log *slog.Logger) *OrganizerHandler {
	return &OrganizerHandler{client: client, log: log}
}

type CreateEventRequest struct {
	Title             string  `json:"title" binding:"required"`
	Description       string  `json:"description" binding:"required"`
	Date              string  `json:"date" binding:"required"`
	Time              string  `json:"time" binding:"required"`
	Duration          float64 `json:"duration" binding:"required,gt=0"`
	RequireAcceptance bool    `json:"requireAcceptance"`
	LimitParticipants int     `json:"limitParticipants" binding:"gte=0"`
	IsPublished       bool    `json:"isPublished"`
	Address           string  `json:"address" binding:"required"`
	CategoryID        string  `json:"categoryId" binding:"required"`
}

// createEventPayload is the exact wire shape the organizer endpoint expects:
// date and time collapsed into one ISO datetime, organizer id included.
type createEventPayload struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Date              string  `json:"date"`
	Duration          float64 `json:"duration"`
	RequireAcceptance bool    `json:"requireAcceptance"`
	LimitParticipants int     `json:"limitParticipants"`
	IsPublished       bool    `json:"isPublished"`
	Address           string  `json:"address"`
	CategoryID        string  `json:"categoryId"`
	OrganizerID       string  `json:"organizerId"`
}

func (h *OrganizerHandler) CreateEvent(ctx *gin.Context) {
	var req CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// narrow capability: organizer identity comes from the session claims,
	// nowhere else
	organizerID, ok := auth.OrganizerID(middlewares.TokenFrom(ctx))

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Debes iniciar sesión para continuar")
		return
	}

	date, err := combineDateTime(req.Date, req.Time)

	if err != nil {
		RespondBadRequest(ctx, "Invalid date or time", gin.H{
			"fields": []FieldError{
				{Field: "date", Rule: "datetime", Message: "must combine into a valid datetime"},
			},
		})

		return
	}

	body, err := h.client.CreateEvent(ctx.Request.Context(), middlewares.TokenFrom(ctx), createEventPayload{
		Title:             req.Title,
		Description:       req.Description,
		Date:              date,
		Duration:          req.Duration,
		RequireAcceptance: req.RequireAcceptance,
		LimitParticipants: req.LimitParticipants,
		IsPublished:       req.IsPublished,
		Address:           req.Address,
		CategoryID:        req.CategoryID,
		OrganizerID:       organizerID,
	})

	if err != nil {
		h.log.Warn("upstream event creation failed", "error", err)
		h.upstreamCreateFailure(ctx, err)

		return
	}

	ctx.Data(http.StatusCreated, "application/json", body)
}

// combineDateTime joins a calendar date and a wall-clock time into the ISO
// datetime the upstream expects.
func combineDateTime(date, clock string) (string, error) {
	t, err := time.Parse("2006-01-02 15:04", date+" "+clock)

	if err != nil {
		return "", err
	}

	return t.Format("2006-01-02T15:04:05"), nil
}

func (h *OrganizerHandler) upstreamCreateFailure(ctx *gin.Context, err error) {
	se, ok := statusErrorFrom(err)

	if !ok {
		RespondUpstreamUnavailable(ctx, "No se pudo crear el evento. Inténtalo de nuevo")
		return
	}

	switch se.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		RespondUnAuthorized(ctx, "unauthorized", se.Message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		RespondBadRequest(ctx, se.Message, nil)
	default:
		RespondUpstreamUnavailable(ctx, "No se pudo crear el evento. Inténtalo de nuevo")
	}
}
