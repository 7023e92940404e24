package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"itsaportal/internal/gateway"
	"itsaportal/internal/identity"

	"go.uber.org/zap"
)

// Session gives every request its own identity context built from the
// tokens it carries. A rejected token leaves the request anonymous; a rotated
// one is written back to the client before the handler runs.
func Session(gw *gateway.Gateway, opts identity.Options, ck Cookies, lg *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identity.New(gw, lg, opts)
			defer id.Close()
			access, refresh := Tokens(r)
			if err := id.Resume(r.Context(), access, refresh); err != nil {
				if access != "" || refresh != "" {
					lg.Debugw("session rejected", "path", r.URL.Path, "error", err)
				}
			} else if st := id.State(); st.Event == gateway.EventTokenRefreshed {
				WriteSession(w, r, st.Session, ck)
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

type Decision int

const (
	Render Decision = iota
	Loading
	Redirect
)

// Decide is the route gate: wait while the session is unresolved, send
// anonymous users to the login route, render otherwise.
func Decide(loading, hasSession bool) Decision {
	switch {
	case loading:
		return Loading
	case !hasSession:
		return Redirect
	}
	return Render
}

// RequireSession gates a route group on an active session. Page routes are
// redirected to loginPath; API routes under /v1/ get 401 naming it.
func RequireSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			loading, has := true, false
			if id != nil {
				loading, has = id.Loading(), id.Session() != nil
			}
			switch Decide(loading, has) {
			case Loading:
				writeJSON(w, http.StatusAccepted, map[string]any{"loading": true})
			case Redirect:
				if strings.HasPrefix(r.URL.Path, "/v1/") {
					writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Not signed in", "redirect": loginPath})
					return
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
