package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ncastellanos/eventgate/internal/http/handlers"
	"github.com/ncastellanos/eventgate/internal/http/middlewares"
	"github.com/ncastellanos/eventgate/internal/observability"
	"github.com/ncastellanos/eventgate/internal/registration"
)

// Fake remote side of the reconciler

type fakeRegClient struct {
	checkFn      func(ctx context.Context, token, eventID string) (bool, error)
	registerFn   func(ctx context.Context, token, eventID string) (registration.RegisterOutcome, error)
	unregisterFn func(ctx context.Context, token, eventID string) error
}

func (f *fakeRegClient) CheckRegistration(ctx context.Context, token, eventID string) (bool, error) {
	if f.checkFn != nil {
		return f.checkFn(ctx, token, eventID)
	}

	return false, nil
}

func (f *fakeRegClient) Register(ctx context.Context, token, eventID string) (registration.RegisterOutcome, error) {
	if f.registerFn != nil {
		return f.registerFn(ctx, token, eventID)
	}

	return registration.RegisterOutcome{}, nil
}

func (f *fakeRegClient) Unregister(ctx context.Context, token, eventID string) error {
	if f.unregisterFn != nil {
		return f.unregisterFn(ctx, token, eventID)
	}

	return nil
}

func setupRegistrationRouter(client registration.Client) *gin.Engine {
	registry := registration.NewRegistry(client)
	prom := observability.NewProm(prometheus.NewRegistry())
	h := handlers.NewRegistrationsHandler(registry, prom, testLogger())

	r := gin.New()
	r.Use(middlewares.Session())

	grp := r.Group("/events/:id/registration", middlewares.RequireSession())
	grp.GET("", h.Status)
	grp.POST("", h.Register)
	grp.DELETE("", h.Unregister)

	return r
}

func doRegistration(r *gin.Engine, method, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/events/e1/registration", nil)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRegistrationStatus(t *testing.T) {
	tests := []struct {
		name           string
		token          bool
		checkFn        func(ctx context.Context, token, eventID string) (bool, error)
		wantStatusCode int
		wantState      registration.State
	}{
		{
			name:           "no_token",
			token:          false,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:  "registered",
			token: true,
			checkFn: func(ctx context.Context, token, eventID string) (bool, error) {
				return true, nil
			},
			wantStatusCode: http.StatusOK,
			wantState:      registration.StateRegistered,
		},
		{
			name:  "check_failure_settles_in_unknown",
			token: true,
			checkFn: func(ctx context.Context, token, eventID string) (bool, error) {
				return false, errors.New("timeout")
			},
			wantStatusCode: http.StatusOK,
			wantState:      registration.StateUnknown,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := setupRegistrationRouter(&fakeRegClient{checkFn: tt.checkFn})

			token := ""
			if tt.token {
				token = testToken(t, "u1", "maria")
			}

			w := doRegistration(r, http.MethodGet, token)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantState == "" {
				return
			}

			var status registration.Status
			if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
				t.Fatalf("failed to unmarshal status: %v", err)
			}

			if status.State != tt.wantState {
				t.Fatalf("got state %q, want %q", status.State, tt.wantState)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		client         *fakeRegClient
		wantStatusCode int
	}{
		{
			name:           "success",
			client:         &fakeRegClient{},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "already_registered",
			client: &fakeRegClient{
				checkFn: func(ctx context.Context, token, eventID string) (bool, error) {
					return true, nil
				},
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "upstream_rejects",
			client: &fakeRegClient{
				registerFn: func(ctx context.Context, token, eventID string) (registration.RegisterOutcome, error) {
					return registration.RegisterOutcome{}, errors.New("El evento no admite más inscripciones")
				},
			},
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := setupRegistrationRouter(tt.client)

			w := doRegistration(r, http.MethodPost, testToken(t, "u1", "maria"))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestUnregister(t *testing.T) {
	client := &fakeRegClient{
		checkFn: func(ctx context.Context, token, eventID string) (bool, error) {
			return true, nil
		},
	}

	r := setupRegistrationRouter(client)

	w := doRegistration(r, http.MethodDelete, testToken(t, "u1", "maria"))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var status registration.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal status: %v", err)
	}

	if status.State != registration.StateNotRegistered {
		t.Fatalf("got state %q, want %q", status.State, registration.StateNotRegistered)
	}
}

func TestUnregister_NotRegistered(t *testing.T) {
	r := setupRegistrationRouter(&fakeRegClient{})

	w := doRegistration(r, http.MethodDelete, testToken(t, "u1", "maria"))

	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusConflict, w.Body.String())
	}
}
