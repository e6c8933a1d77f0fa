package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// CookieName is the cookie checked when no header or query token is present.
const CookieName = "xpense_token"

// Verifier turns a raw token into a user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// TokenFromRequest looks for a token in the Authorization header, then the
// token query parameter, then the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware rejects requests without a valid token by calling deny, and
// otherwise stores the caller id in the request context.
func Middleware(v Verifier, deny func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := v.Verify(TokenFromRequest(r))
			if err != nil {
				slog.WarnContext(r.Context(), "Rejected unauthenticated request",
					"path", r.URL.Path,
					"error", err)
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
