package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/autodocwriter/autodoc/internal/auth"
	"github.com/autodocwriter/autodoc/internal/session"
)

// CONTEXT KEYS:
// context.WithValue compares keys by type and value. An unexported key type
// means no other package can build a key equal to profileKey, even with the
// same string, so nothing outside this package can overwrite or read the
// profile by accident. ProfileFromContext is the only way in.
type contextKey string

const profileKey contextKey = "profile"

// ProfileSource hands out the profile of a browser. *session.Registry
// satisfies it.
type ProfileSource interface {
	Get(ctx context.Context, id string) (*session.Profile, error)
}

// CookieOptions controls the profile cookie attributes.
type CookieOptions struct {
	Secure bool
}

// Profile identifies the browser by its signed profile cookie and puts the
// profile (storage, API client, session) in the request context. A missing
// or tampered cookie gets a fresh profile and a new cookie.
//
// REQUEST FLOW:
//
//	cookie autodoc_profile=<jwt>
//	  │ valid signature, not expired → profile ID from the subject
//	  │ anything else               → new xid, new signed cookie
//	  ▼
//	Registry.Get(id) → *session.Profile (hydrated on first use)
//	  ▼
//	context.WithValue(ctx, profileKey, profile) → next handler
//
// The cookie holds only the ID. The token and everything else stay in the
// server's database.
func Profile(tokens *auth.ProfileTokens, profiles ProfileSource, opts CookieOptions, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := profileID(r, tokens)
			if !ok {
				id = auth.NewProfileID()
				signed, err := tokens.Issue(id)
				if err != nil {
					logger.Error("failed to sign profile cookie", slog.String("error", err.Error()))
					writeJSONError(w, http.StatusInternalServerError, "internal", "an unexpected error occurred")
					return
				}
				// HttpOnly: not readable from page scripts. SameSite=Lax:
				// sent on top-level navigations, which the OAuth callback is.
				http.SetCookie(w, &http.Cookie{
					Name:     auth.ProfileCookieName,
					Value:    signed,
					Path:     "/",
					MaxAge:   int(auth.ProfileLifetime.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			p, err := profiles.Get(r.Context(), id)
			if err != nil {
				logger.Error("failed to load profile",
					slog.String("profile", id),
					slog.String("error", err.Error()),
				)
				writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "local storage is unavailable")
				return
			}

			// r.WithContext returns a shallow copy; requests are never
			// mutated in place.
			ctx := context.WithValue(r.Context(), profileKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileFromContext returns the profile put in ctx by Profile.
func ProfileFromContext(ctx context.Context) (*session.Profile, bool) {
	p, ok := ctx.Value(profileKey).(*session.Profile)
	return p, ok && p != nil
}

// WithProfile returns a copy of ctx carrying p. Tests use it to skip the
// cookie round trip.
func WithProfile(ctx context.Context, p *session.Profile) context.Context {
	return context.WithValue(ctx, profileKey, p)
}

// profileID reads and verifies the profile cookie.
func profileID(r *http.Request, tokens *auth.ProfileTokens) (string, bool) {
	cookie, err := r.Cookie(auth.ProfileCookieName)
	if err != nil {
		return "", false
	}
	id, err := tokens.Validate(cookie.Value)
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// writeJSONError writes the handler error shape. kind and message are
// constants of this package, so no escaping is needed.
func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + kind + `","message":"` + message + `"}`))
}
