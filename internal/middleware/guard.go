package middleware

// ROUTE GUARDS:
// A guard is ordinary middleware that decides from the session snapshot
// whether the page runs. chi attaches it to a group of routes with r.Use,
// so pages never check the session themselves.
//
//	                   loading          anonymous        authenticated
//	ProtectedRoute     202 + Retry-After  303 → /          page
//	AuthRedirect       202 + Retry-After  page             303 → /dashboard
//
// 303 See Other makes the browser follow with a GET whatever the original
// method was.

import (
	"net/http"

	"github.com/autodocwriter/autodoc/internal/session"
)

// Landing routes the guards redirect to.
const (
	PublicRoute        = "/"
	AuthenticatedRoute = "/dashboard"
)

// ProtectedRoute serves next only for an authenticated session. While the
// session is still resolving it answers with a neutral loading response and
// makes no decision; once resolved, anonymous sessions are sent to "/".
func ProtectedRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := snapshot(r)
		switch {
		case snap.IsLoading:
			writeLoading(w)
		case !snap.IsAuthenticated():
			http.Redirect(w, r, PublicRoute, http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// AuthRedirect is the opposite of ProtectedRoute for public-only pages: an
// authenticated session is sent to the dashboard.
func AuthRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := snapshot(r)
		switch {
		case snap.IsLoading:
			writeLoading(w)
		case snap.IsAuthenticated():
			http.Redirect(w, r, AuthenticatedRoute, http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// snapshot reads the session of the request. A request without a profile is
// treated as anonymous.
func snapshot(r *http.Request) session.Snapshot {
	p, ok := ProfileFromContext(r.Context())
	if !ok {
		return session.Snapshot{}
	}
	return p.Session.Snapshot()
}

// writeLoading answers "try again shortly". Retry-After is in seconds.
func writeLoading(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"loading"}`))
}
