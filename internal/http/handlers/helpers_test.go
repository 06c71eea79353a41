package handlers_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testToken builds a signed token carrying the usual upstream claims. The
// gateway only decodes claims, it never verifies, so any key works here.
func testToken(t *testing.T, userID, userName string, roles ...string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":         userID,
		"unique_name": userName,
	}

	if len(roles) > 0 {
		claims["role"] = roles
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))

	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}

	return token
}
