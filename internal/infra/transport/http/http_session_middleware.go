package http

import (
	"context"
	"net/http"
	"time"

	context_ "github.com/mkrupp/webgallery/internal/infra/context"
	"github.com/mkrupp/webgallery/internal/infra/logging"
)

// Cookie names. Only SessionCookie is trusted; UsernameCookie is informational for the frontend.
const (
	SessionCookie  = "session"
	UsernameCookie = "username"
)

// SessionResolver maps an opaque session token to a username.
// It returns ok=false for unknown or expired tokens and an error only on storage failure.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (username string, ok bool, err error)
}

// SessionMiddleware resolves the session cookie on every request and attaches the
// identity to the request context. Requests without a valid session pass through
// anonymously. A storage failure during resolution answers 500.
func SessionMiddleware(next http.Handler, sessions SessionResolver, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)

			return
		}

		ctx := context_.WithSessionToken(r.Context(), cookie.Value)

		username, ok, err := sessions.Resolve(ctx, cookie.Value)
		if err != nil {
			log.ErrorContext(ctx, "resolve session failed", "error", err)
			WriteError(w, err)

			return
		}

		if ok {
			ctx = context_.WithIdentity(ctx, username)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := context_.IdentityFromContext(r.Context()); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// CookieConfig controls the attributes of the session cookies.
type CookieConfig struct {
	// Secure restricts the cookies to HTTPS
	Secure bool `env:"COOKIE_SECURE" default:"false"`
	// Path scopes the cookies
	Path string `env:"COOKIE_PATH" default:"/"`
}

// SetSessionCookies issues the session and username cookies.
func SetSessionCookies(w http.ResponseWriter, cfg CookieConfig, token, username string, maxAge time.Duration) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     cfg.Path,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     UsernameCookie,
		Value:    username,
		Path:     cfg.Path,
		MaxAge:   int(maxAge.Seconds()),
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookies expires both session cookies on the client.
func ClearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	for _, name := range []string{SessionCookie, UsernameCookie} {
		//nolint:exhaustruct
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     cfg.Path,
			MaxAge:   -1,
			HttpOnly: name == SessionCookie,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
