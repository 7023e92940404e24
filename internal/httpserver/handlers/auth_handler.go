package handlers

import (
	"errors"
	"net/http"
	"time"

	"itsaportal/internal/auth"
	"itsaportal/internal/gateway"
	"itsaportal/internal/identity"
	"itsaportal/internal/lifecycle"

	"go.uber.org/zap"
)

// Cookies configures the session cookies written on sign-in.
type Cookies = auth.Cookies

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResp struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         gateway.User `json:"user"`
	Redirect     string       `json:"redirect"`
}

// Login signs in and points the caller at next: "/dashboard" for clients,
// "/admin" for the staff login page. Staff status is checked by the admin
// view, not here.
func Login(next string, ck Cookies, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decode(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		sess, err := auth.FromContext(r.Context()).SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		auth.SetCookies(w, sess, ck.Secure, ck.RefreshTTL)
		respondJSON(w, sessionResp{
			AccessToken:  sess.AccessToken,
			RefreshToken: sess.RefreshToken,
			ExpiresAt:    sess.ExpiresAt,
			User:         sess.User,
			Redirect:     next,
		})
	}
}

func Register(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req identity.Registration
		if err := decode(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		if err := req.Validate(); err != nil {
			respondError(w, lg, err)
			return
		}
		user, err := auth.FromContext(r.Context()).SignUp(r.Context(), req.Email, req.Password, req.ProfileFields)
		var perr *identity.ProfileError
		if err != nil && !errors.As(err, &perr) {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, map[string]any{
			"user":    user,
			"message": "We've sent a verification link to " + user.Email + ". Please check your email to verify your account.",
		})
	}
}

func Logout(ck Cookies, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := auth.FromContext(r.Context()).SignOut(r.Context())
		auth.ClearCookies(w, ck.Secure)
		if err != nil {
			lg.Warnw("sign out failed", "error", err)
		}
		respondJSON(w, map[string]any{"signed_out": true})
	}
}

func ResetPassword(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := decode(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		if err := auth.FromContext(r.Context()).ResetPassword(r.Context(), req.Email); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"sent": true})
	}
}

func UpdatePassword(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Password        string `json:"password"`
			ConfirmPassword string `json:"confirm_password"`
		}
		if err := decode(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		if err := auth.FromContext(r.Context()).UpdatePassword(r.Context(), req.Password, req.ConfirmPassword); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"updated": true})
	}
}

func Me(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := auth.FromContext(r.Context())
		level, err := id.Capability(r.Context())
		if err != nil {
			lg.Warnw("capability lookup failed", "error", err)
		}
		profile, err := id.Profile(r.Context())
		if err != nil {
			lg.Warnw("profile lookup failed", "error", err)
		}
		resp := map[string]any{
			"capability": level.String(),
			"is_staff":   level == identity.Staff,
			"profile":    profile,
		}
		if sess := id.Session(); sess != nil {
			resp["user"] = sess.User
		}
		respondJSON(w, resp)
	}
}

// Callback completes verification and recovery links. Failures render the
// failure panel payload with links back to login and registration.
func Callback(ck Cookies, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		id := auth.FromContext(r.Context())
		res, err := id.CompleteCallback(r.Context(), identity.CallbackParams{
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
			Code:             q.Get("code"),
			AccessToken:      q.Get("access_token"),
			RefreshToken:     q.Get("refresh_token"),
			Type:             q.Get("type"),
		})
		if err != nil {
			var cerr *identity.CallbackError
			if !errors.As(err, &cerr) {
				lg.Errorw("auth callback failed", "error", err)
				err = &identity.CallbackError{Message: "An error occurred during verification. Please try again."}
			}
			respondStatus(w, http.StatusBadRequest, map[string]any{
				"status":  "error",
				"message": lifecycle.Message(err),
				"links":   map[string]string{"login": "/login", "register": "/register"},
			})
			return
		}
		auth.SetCookies(w, id.Session(), ck.Secure, ck.RefreshTTL)
		respondJSON(w, map[string]any{"status": "success", "message": res.Message, "next": res.Next})
	}
}
