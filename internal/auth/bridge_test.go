package auth_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/ncastellanos/eventgate/internal/auth"
	"github.com/ncastellanos/eventgate/internal/upstream"
)

type fakeAuthAPI struct {
	loginFn func(ctx context.Context, email, password string) ([]byte, error)
}

func (f *fakeAuthAPI) Login(ctx context.Context, email, password string) ([]byte, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}
	return []byte(`{}`), nil
}

func (f *fakeAuthAPI) RegisterUser(ctx context.Context, payload any) ([]byte, error) {
	return []byte(`{"message":"ok"}`), nil
}

func (f *fakeAuthAPI) VerifyEmail(ctx context.Context, email, code string) ([]byte, error) {
	return []byte(`{}`), nil
}

func (f *fakeAuthAPI) ResendVerification(ctx context.Context, email string) ([]byte, error) {
	return []byte(`{}`), nil
}

func statusErr(status int, body string) error {
	return &upstream.StatusError{Status: status, Message: "upstream says no", Body: []byte(body)}
}

func TestLoginErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind auth.ErrorKind
		wantMsg  string
	}{
		{
			name:     "account_locked",
			err:      statusErr(http.StatusUnauthorized, `{"code":"AccountLocked"}`),
			wantKind: auth.KindAccountLocked,
		},
		{
			name:     "invalid_credentials",
			err:      statusErr(http.StatusUnauthorized, `{"code":"InvalidCredentials"}`),
			wantKind: auth.KindInvalidCredentials,
		},
		{
			name:     "email_not_verified",
			err:      statusErr(http.StatusForbidden, `{"code":"EmailNotVerified"}`),
			wantKind: auth.KindEmailNotVerified,
		},
		{
			name:     "unmapped_code_surfaces_server_message_verbatim",
			err:      statusErr(http.StatusTeapot, `{"code":"SomethingNew","message":"el servidor dice hola"}`),
			wantKind: auth.KindUnknown,
			wantMsg:  "el servidor dice hola",
		},
		{
			name:     "transport_failure",
			err:      errors.New("dial tcp: connection refused"),
			wantKind: auth.KindUnknown,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAuthAPI{
				loginFn: func(ctx context.Context, email, password string) ([]byte, error) {
					return nil, tt.err
				},
			}
			b := auth.NewBridge(api, "https://tickets.example.com/api")

			_, err := b.Login(context.Background(), "a@b.c", "secret")

			var authErr *auth.AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if authErr.Kind != tt.wantKind {
				t.Fatalf("kind = %q, want %q", authErr.Kind, tt.wantKind)
			}
			if tt.wantMsg != "" && authErr.Message != tt.wantMsg {
				t.Fatalf("message = %q, want %q", authErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	api := &fakeAuthAPI{
		loginFn: func(ctx context.Context, email, password string) ([]byte, error) {
			return []byte(`{"token":"tok-1","roles":["User"],"user":{"id":"u1","userName":"ana"}}`), nil
		},
	}
	b := auth.NewBridge(api, "https://tickets.example.com/api")

	s, err := b.Login(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.AccessToken != "tok-1" || s.UserID != "u1" || s.UserName != "ana" {
		t.Fatalf("session = %+v", s)
	}
	if !s.HasRole("User") {
		t.Fatalf("expected User role")
	}
}

func TestProviderRedirectURL(t *testing.T) {
	b := auth.NewBridge(&fakeAuthAPI{}, "https://tickets.example.com/api")

	got := b.ProviderRedirectURL("google", "https://web.example.com/events/e1")
	want := "https://tickets.example.com/api/Auth/external/google?returnUrl=https%3A%2F%2Fweb.example.com%2Fevents%2Fe1"

	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// unsignedToken builds a syntactically valid JWT with the given payload and
// an empty signature, enough for the unverified display-level decode.
func unsignedToken(t *testing.T, payload string) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims := base64.RawURLEncoding.EncodeToString([]byte(payload))

	return header + "." + claims + "."
}

func TestFromToken(t *testing.T) {
	t.Run("valid_claims", func(t *testing.T) {
		tok := unsignedToken(t, `{"sub":"u-77","unique_name":"leo","role":"Organizer"}`)

		s := auth.FromToken(tok)
		if s == nil {
			t.Fatalf("expected session")
		}
		if s.UserID != "u-77" || s.UserName != "leo" {
			t.Fatalf("session = %+v", s)
		}
		if !s.HasRole("Organizer") {
			t.Fatalf("expected Organizer role")
		}
	})

	t.Run("roles_array", func(t *testing.T) {
		tok := unsignedToken(t, `{"sub":"u-1","roles":["User","Organizer"]}`)

		s := auth.FromToken(tok)
		if s == nil || len(s.Roles) != 2 {
			t.Fatalf("session = %+v", s)
		}
	})

	// malformed tokens degrade to "not authenticated", they never error out
	t.Run("garbage_degrades_to_nil", func(t *testing.T) {
		for _, tok := range []string{"", "not-a-jwt", "a.b", "a.%%%.c"} {
			if s := auth.FromToken(tok); s != nil {
				t.Fatalf("token %q should yield nil, got %+v", tok, s)
			}
		}
	})

	t.Run("missing_subject_degrades_to_nil", func(t *testing.T) {
		tok := unsignedToken(t, `{"role":"User"}`)

		if s := auth.FromToken(tok); s != nil {
			t.Fatalf("expected nil session, got %+v", s)
		}
	})
}

func TestOrganizerID(t *testing.T) {
	tok := unsignedToken(t, `{"sub":"org-9"}`)

	id, ok := auth.OrganizerID(tok)
	if !ok || id != "org-9" {
		t.Fatalf("got (%q, %v)", id, ok)
	}

	if _, ok := auth.OrganizerID("broken"); ok {
		t.Fatalf("broken token must not yield an organizer id")
	}
}
