package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ncastellanos/eventgate/internal/auth"
	"github.com/ncastellanos/eventgate/internal/http/middlewares"
)

type AuthHandler struct {
	bridge *auth.Bridge
	log    *slog.Logger
}

func NewAuthHandler(bridge *auth.Bridge, log *slog.Logger) *AuthHandler {
	return &AuthHandler{bridge: bridge, log: log}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	UserName string `json:"userName" binding:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	session, err := h.bridge.Login(ctx.Request.Context(), req.Email, req.Password)

	if err != nil {
		h.respondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": session.AccessToken,
		"userId":      session.UserID,
		"userName":    session.UserName,
		"roles":       session.Roles,
	})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	out, err := h.bridge.Register(ctx.Request.Context(), map[string]string{
		"email":    req.Email,
		"password": req.Password,
		"userName": req.UserName,
	})

	if err != nil {
		h.respondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) VerifyEmail(ctx *gin.Context) {
	var req VerifyEmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	out, err := h.bridge.VerifyEmail(ctx.Request.Context(), req.Email, req.Code)

	if err != nil {
		h.respondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, out)
}

func (h *AuthHandler) ResendVerification(ctx *gin.Context) {
	var req ResendVerificationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	out, err := h.bridge.ResendVerification(ctx.Request.Context(), req.Email)

	if err != nil {
		h.respondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, out)
}

// Logout acknowledges the end of session. Bearers are stateless, so the
// contract is that the caller discards its token; there is nothing for the
// gateway or the upstream to revoke.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.bridge.Logout())
}

// Session reflects the decoded bearer back to the caller. Display-level
// only: claims are read without signature verification, the upstream is the
// sole authority on every protected call.
func (h *AuthHandler) Session(ctx *gin.Context) {
	session := middlewares.SessionFrom(ctx)

	if session == nil {
		RespondUnAuthorized(ctx, "unauthenticated", "Debes iniciar sesión para continuar")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": session.AccessToken,
		"userId":      session.UserID,
		"userName":    session.UserName,
		"roles":       session.Roles,
	})
}

// ExternalProvider hands the caller off to the upstream social sign-in entry
// point. The upstream drives the flow from there.
func (h *AuthHandler) ExternalProvider(ctx *gin.Context) {
	provider := ctx.Param("provider")

	redirect := h.bridge.ProviderRedirectURL(provider, ctx.Query("returnUrl"))

	ctx.Redirect(http.StatusTemporaryRedirect, redirect)
}

func (h *AuthHandler) respondAuthError(ctx *gin.Context, err error) {
	authErr, ok := err.(*auth.AuthError)

	if !ok {
		h.log.Warn("auth call failed", "error", err)
		RespondUpstreamUnavailable(ctx, "El servicio de autenticación no está disponible")

		return
	}

	switch authErr.Kind {
	case auth.KindInvalidCredentials:
		RespondUnAuthorized(ctx, "invalid_credentials", authErr.Message)
	case auth.KindEmailNotVerified:
		RespondError(ctx, http.StatusForbidden, "email_not_verified", authErr.Message, nil)
	case auth.KindAccountLocked:
		RespondError(ctx, http.StatusLocked, "account_locked", authErr.Message, nil)
	default:
		RespondBadRequest(ctx, authErr.Message, nil)
	}
}
