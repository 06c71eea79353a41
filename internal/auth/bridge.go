// Package auth bridges credential and social sign-in against the upstream
// identity endpoints and translates their error codes into the small set of
// categories the consumer UI distinguishes.
package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/ncastellanos/eventgate/internal/upstream"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ErrorKind string

const (
	KindEmailNotVerified   ErrorKind = "EmailNotVerified"
	KindInvalidCredentials ErrorKind = "InvalidCredentials"
	KindAccountLocked      ErrorKind = "AccountLocked"
	KindUnknown            ErrorKind = "Unknown"
)

// AuthError carries exactly one mapped kind. Unmapped upstream codes fall
// back to Unknown with the server-provided message surfaced verbatim.
type AuthError struct {
	Kind    ErrorKind
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// LoginCaller is the slice of the upstream client the bridge needs. Kept
// small so tests can fake it easily.
type LoginCaller interface {
	Login(ctx context.Context, email, password string) ([]byte, error)
	RegisterUser(ctx context.Context, payload any) ([]byte, error)
	VerifyEmail(ctx context.Context, email, code string) ([]byte, error)
	ResendVerification(ctx context.Context, email string) ([]byte, error)
}

type Bridge struct {
	client  LoginCaller
	baseURL string
}

func NewBridge(client LoginCaller, baseURL string) *Bridge {
	return &Bridge{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Login exchanges credentials for a session. Any failure comes back as an
// *AuthError; the caller never sees a raw upstream error.
func (b *Bridge) Login(ctx context.Context, email, password string) (Session, error) {
	body, err := b.client.Login(ctx, email, password)
	if err != nil {
		return Session{}, mapLoginError(err)
	}

	var res struct {
		Token string `json:"token"`
		Roles []string `json:"roles"`
		User  struct {
			ID       string `json:"id"`
			UserName string `json:"userName"`
		} `json:"user"`
	}

	if err := json.Unmarshal(body, &res); err != nil || res.Token == "" {
		return Session{}, &AuthError{Kind: KindUnknown, Message: "Respuesta de autenticación inválida"}
	}

	s := Session{
		AccessToken: res.Token,
		UserID:      res.User.ID,
		UserName:    res.User.UserName,
		Roles:       res.Roles,
	}

	// fill gaps from the token claims, display-level only
	if decoded := FromToken(res.Token); decoded != nil {
		if s.UserID == "" {
			s.UserID = decoded.UserID
		}
		if len(s.Roles) == 0 {
			s.Roles = decoded.Roles
		}
	}
	if s.Roles == nil {
		s.Roles = []string{}
	}

	return s, nil
}

// ProviderRedirectURL builds the redirect entry point for social sign-in.
// Fire-and-forget: the upstream drives the rest of the flow.
func (b *Bridge) ProviderRedirectURL(provider, returnURL string) string {
	u := b.baseURL + "/Auth/external/" + url.PathEscape(provider)

	if returnURL != "" {
		u += "?returnUrl=" + url.QueryEscape(returnURL)
	}

	return u
}

// Outcome is the success/failure-plus-message contract of the
// fire-and-forget auth endpoints (register, verify, resend).
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (b *Bridge) Register(ctx context.Context, payload any) (Outcome, error) {
	return outcomeFrom(b.client.RegisterUser(ctx, payload))
}

func (b *Bridge) VerifyEmail(ctx context.Context, email, code string) (Outcome, error) {
	return outcomeFrom(b.client.VerifyEmail(ctx, email, code))
}

func (b *Bridge) ResendVerification(ctx context.Context, email string) (Outcome, error) {
	return outcomeFrom(b.client.ResendVerification(ctx, email))
}

// Logout ends the session. The upstream issues stateless bearers and keeps
// no server-side session, so there is nothing to revoke remotely: the whole
// operation is the caller discarding its token. Returns an Outcome so all
// the session-lifecycle calls read uniformly.
func (b *Bridge) Logout() Outcome {
	return Outcome{Success: true, Message: "Sesión cerrada"}
}

func outcomeFrom(body []byte, err error) (Outcome, error) {
	if err != nil {
		return Outcome{}, mapLoginError(err)
	}

	out := Outcome{Success: true}

	var res struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &res) == nil {
		out.Message = res.Message
	}

	return out, nil
}

// mapLoginError narrows an upstream failure to one ErrorKind. The error body
// carries {"code": "...", "message": "..."}; unmapped codes are Unknown with
// the server message kept verbatim.
func mapLoginError(err error) *AuthError {
	var se *upstream.StatusError

	if !errors.As(err, &se) {
		return &AuthError{Kind: KindUnknown, Message: "No se pudo contactar con el servidor"}
	}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(se.Body, &body)

	switch body.Code {
	case "EmailNotVerified":
		return &AuthError{Kind: KindEmailNotVerified, Message: "Verifica tu correo antes de iniciar sesión"}
	case "InvalidCredentials":
		return &AuthError{Kind: KindInvalidCredentials, Message: "Correo o contraseña incorrectos"}
	case "AccountLocked":
		return &AuthError{Kind: KindAccountLocked, Message: "Tu cuenta está bloqueada temporalmente"}
	default:
		msg := body.Message
		if msg == "" {
			msg = se.Message
		}
		return &AuthError{Kind: KindUnknown, Message: msg}
	}
}
