package auth

import (
	"net/http"
	"strings"
	"time"

	"itsaportal/internal/gateway"
)

const (
	AccessCookie  = "sb-access-token"
	RefreshCookie = "sb-refresh-token"
	AccessHeader  = "X-Access-Token"
	RefreshHeader = "X-Refresh-Token"
)

// Cookies configures the session cookies written on sign-in and refresh.
type Cookies struct {
	Secure     bool
	RefreshTTL time.Duration
}

// usesHeaders reports a client that sends its tokens in headers rather than
// cookies.
func usesHeaders(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") || r.Header.Get(RefreshHeader) != ""
}

// Tokens reads the session a request carries: a bearer token and refresh
// header win over the session cookies.
func Tokens(r *http.Request) (access, refresh string) {
	if usesHeaders(r) {
		access = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		return access, strings.TrimSpace(r.Header.Get(RefreshHeader))
	}
	if c, err := r.Cookie(AccessCookie); err == nil {
		access = c.Value
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		refresh = c.Value
	}
	return access, refresh
}

// SetCookies stores sess on the client. The refresh cookie outlives the
// access token so an expired session can be rotated.
func SetCookies(w http.ResponseWriter, sess *gateway.Session, secure bool, refreshTTL time.Duration) {
	if sess == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    sess.RefreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// WriteSession hands a rotated session back the way the request carried its
// tokens: response headers for header clients, cookies otherwise.
func WriteSession(w http.ResponseWriter, r *http.Request, sess *gateway.Session, ck Cookies) {
	if sess == nil {
		return
	}
	if usesHeaders(r) {
		w.Header().Set(AccessHeader, sess.AccessToken)
		w.Header().Set(RefreshHeader, sess.RefreshToken)
		return
	}
	SetCookies(w, sess, ck.Secure, ck.RefreshTTL)
}
