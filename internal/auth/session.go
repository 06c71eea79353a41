package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Session is the explicit per-request session value. There is no ambient
// session singleton anywhere in the gateway: whoever needs identity receives
// a *Session (possibly nil) from the request that carried the bearer token.
type Session struct {
	AccessToken string   `json:"accessToken"`
	UserID      string   `json:"userId"`
	UserName    string   `json:"userName,omitempty"`
	Roles       []string `json:"roles"`
}

func (s *Session) HasRole(role string) bool {
	if s == nil {
		return false
	}

	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FromToken is the single place the gateway looks inside a JWT, and only
// best-effort: the signature is NOT verified because authorization decisions
// belong to the upstream. A malformed or empty token degrades to nil
// ("not authenticated"), never an error.
func FromToken(token string) *Session {
	if token == "" {
		return nil
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	s := &Session{
		AccessToken: token,
		UserID:      firstString(claims, "sub", "nameid", "userId"),
		UserName:    firstString(claims, "unique_name", "name"),
		Roles:       roleClaims(claims),
	}

	if s.UserID == "" {
		return nil
	}

	return s
}

// OrganizerID derives the organizer identity the event-creation payload
// needs. Kept as its own narrow capability so the workaround stays isolated.
func OrganizerID(token string) (string, bool) {
	s := FromToken(token)
	if s == nil {
		return "", false
	}

	return s.UserID, true
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func roleClaims(claims jwt.MapClaims) []string {
	for _, key := range []string{"roles", "role"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return []string{v}
			}
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return []string{}
}
