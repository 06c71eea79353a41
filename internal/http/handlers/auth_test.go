package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ncastellanos/eventgate/internal/auth"
	"github.com/ncastellanos/eventgate/internal/http/handlers"
	"github.com/ncastellanos/eventgate/internal/http/middlewares"
	"github.com/ncastellanos/eventgate/internal/upstream"
)

// Fake upstream identity endpoints

type fakeAuthCaller struct {
	loginFn func(ctx context.Context, email, password string) ([]byte, error)
}

func (f *fakeAuthCaller) Login(ctx context.Context, email, password string) ([]byte, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}

	return []byte(`{}`), nil
}

func (f *fakeAuthCaller) RegisterUser(ctx context.Context, payload any) ([]byte, error) {
	return []byte(`{"message": "Revisa tu correo"}`), nil
}

func (f *fakeAuthCaller) VerifyEmail(ctx context.Context, email, code string) ([]byte, error) {
	return []byte(`{}`), nil
}

func (f *fakeAuthCaller) ResendVerification(ctx context.Context, email string) ([]byte, error) {
	return []byte(`{}`), nil
}

func setupAuthRouter(caller *fakeAuthCaller) *gin.Engine {
	bridge := auth.NewBridge(caller, "https://tickets.example.com/api")
	h := handlers.NewAuthHandler(bridge, testLogger())

	r := gin.New()
	r.Use(middlewares.Session())

	r.POST("/auth/login", h.Login)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/session", h.Session)

	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func upstreamAuthError(status int, code string) error {
	return &upstream.StatusError{
		Status:  status,
		Message: "auth failed",
		Body:    []byte(`{"code": "` + code + `", "message": "server says no"}`),
	}
}

func TestLoginHandler(t *testing.T) {
	const body = `{"email": "maria@example.com", "password": "secret123"}`

	tests := []struct {
		name           string
		body           string
		loginFn        func(ctx context.Context, email, password string) ([]byte, error)
		wantStatusCode int
		wantCode       string
	}{
		{
			name: "success",
			body: body,
			loginFn: func(ctx context.Context, email, password string) ([]byte, error) {
				return []byte(`{"token": "tok123", "roles": ["User"], "user": {"id": "u1", "userName": "maria"}}`), nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "validation_error",
			body:           `{"email": "not-an-email"}`,
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "invalid_request",
		},
		{
			name: "invalid_credentials",
			body: body,
			loginFn: func(ctx context.Context, email, password string) ([]byte, error) {
				return nil, upstreamAuthError(http.StatusUnauthorized, "InvalidCredentials")
			},
			wantStatusCode: http.StatusUnauthorized,
			wantCode:       "invalid_credentials",
		},
		{
			name: "email_not_verified",
			body: body,
			loginFn: func(ctx context.Context, email, password string) ([]byte, error) {
				return nil, upstreamAuthError(http.StatusForbidden, "EmailNotVerified")
			},
			wantStatusCode: http.StatusForbidden,
			wantCode:       "email_not_verified",
		},
		{
			name: "account_locked",
			body: body,
			loginFn: func(ctx context.Context, email, password string) ([]byte, error) {
				return nil, upstreamAuthError(http.StatusForbidden, "AccountLocked")
			},
			wantStatusCode: http.StatusLocked,
			wantCode:       "account_locked",
		},
		{
			name: "unknown_code_surfaces_server_message",
			body: body,
			loginFn: func(ctx context.Context, email, password string) ([]byte, error) {
				return nil, upstreamAuthError(http.StatusBadRequest, "SomethingElse")
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "invalid_request",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := setupAuthRouter(&fakeAuthCaller{loginFn: tt.loginFn})

			w := postJSON(r, "/auth/login", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantCode == "" {
				var resp struct {
					AccessToken string `json:"accessToken"`
					UserID      string `json:"userId"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal body: %v", err)
				}
				if resp.AccessToken != "tok123" || resp.UserID != "u1" {
					t.Fatalf("unexpected login response: %s", w.Body.String())
				}
				return
			}

			var resp struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal body: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Fatalf("got code %q, want %q, body=%s", resp.Error.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestLoginHandler_UpstreamUnreachable(t *testing.T) {
	r := setupAuthRouter(&fakeAuthCaller{
		loginFn: func(ctx context.Context, email, password string) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	})

	w := postJSON(r, "/auth/login", `{"email": "maria@example.com", "password": "secret123"}`)

	// unreachable maps to Unknown with a generic retry message, not a 5xx leak
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestRegisterHandler(t *testing.T) {
	r := setupAuthRouter(&fakeAuthCaller{})

	w := postJSON(r, "/auth/register", `{"email": "maria@example.com", "password": "secret123", "userName": "maria"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	if !out.Success || out.Message != "Revisa tu correo" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestLogoutHandler(t *testing.T) {
	r := setupAuthRouter(&fakeAuthCaller{})

	// bearer or not, logout always succeeds: the token is stateless and the
	// caller discarding it is the whole operation
	w := postJSON(r, "/auth/logout", `{}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var out struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	if !out.Success {
		t.Fatalf("logout must report success: %s", w.Body.String())
	}
}

func TestSessionHandler(t *testing.T) {
	r := setupAuthRouter(&fakeAuthCaller{})

	// without a bearer
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnauthorized)
	}

	// with a decodable bearer
	token := testToken(t, "u1", "maria", "Organizer")

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		AccessToken string   `json:"accessToken"`
		UserID      string   `json:"userId"`
		UserName    string   `json:"userName"`
		Roles       []string `json:"roles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	if resp.UserID != "u1" || resp.UserName != "maria" || len(resp.Roles) != 1 || resp.Roles[0] != "Organizer" {
		t.Fatalf("unexpected session view: %+v", resp)
	}

	if resp.AccessToken != token {
		t.Fatalf("session view must echo the supplied token back")
	}

	// garbage bearer degrades to unauthenticated, never an error
	req = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
