package middleware

import (
	"net/http"

	"github.com/listkeep/listkeep/internal/auth"
	"github.com/listkeep/listkeep/internal/store"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "listkeep_session"

// RequireAuth gates protected routes on a valid session. A request with
// no resolvable, unexpired session never reaches the wrapped handler:
// AJAX callers get a 401 JSON body, browsers a redirect to /login.
// On success the session's embedded identity is placed in the context.
func RequireAuth(sessionStore *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				denyUnauthenticated(w, r)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				denyUnauthenticated(w, r)
				return
			}

			ac := auth.AuthContext{
				UserID:    sess.UserID,
				Username:  sess.Username,
				Email:     sess.Email,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":401,"message":"Not authenticated"}`))
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
