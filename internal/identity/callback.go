package identity

import (
	"context"
	"errors"
	"strings"

	"itsaportal/internal/gateway"
)

// CallbackParams are the query values a verification or recovery link
// carries back to /auth/callback.
type CallbackParams struct {
	Error            string
	ErrorDescription string
	Code             string
	AccessToken      string
	RefreshToken     string
	Type             string
}

// CallbackResult tells the view where to send the user and what to show.
type CallbackResult struct {
	Next    string `json:"next"`
	Message string `json:"message"`
}

// CallbackError is rendered as the verification failure panel.
type CallbackError struct {
	Message string
}

func (e *CallbackError) Error() string { return e.Message }

const (
	msgVerified       = "Email verified successfully! Redirecting to dashboard..."
	msgRecovery       = "Password reset link verified! Redirecting..."
	msgAlreadyIn      = "You are already logged in! Redirecting..."
	msgInvalidLink    = "Invalid or expired verification link. Please try again."
	msgAuthFailed     = "Authentication failed"
	PathDashboard     = "/dashboard"
	PathResetPassword = "/reset-password"
)

// CompleteCallback finishes an email link: an explicit error, a one-time
// code, or a token pair, falling back to an existing session.
func (c *Context) CompleteCallback(ctx context.Context, p CallbackParams) (CallbackResult, error) {
	if p.Error != "" || p.ErrorDescription != "" {
		msg := strings.TrimSpace(p.ErrorDescription)
		if msg == "" {
			msg = msgAuthFailed
		}
		return CallbackResult{}, &CallbackError{Message: msg}
	}

	if p.Code != "" {
		sess, err := c.auth.ExchangeCodeForSession(ctx, p.Code)
		if err != nil {
			return CallbackResult{}, &CallbackError{Message: gatewayMessage(err)}
		}
		if sess != nil {
			if c.State().Event == gateway.EventPasswordRecovery {
				return CallbackResult{Next: PathResetPassword, Message: msgRecovery}, nil
			}
			return CallbackResult{Next: PathDashboard, Message: msgVerified}, nil
		}
	}

	if p.AccessToken != "" && p.RefreshToken != "" {
		if _, err := c.auth.SetSession(ctx, p.AccessToken, p.RefreshToken); err != nil {
			return CallbackResult{}, &CallbackError{Message: gatewayMessage(err)}
		}
		if p.Type == "recovery" {
			return CallbackResult{Next: PathResetPassword, Message: msgRecovery}, nil
		}
		return CallbackResult{Next: PathDashboard, Message: msgVerified}, nil
	}

	if c.Session() != nil {
		return CallbackResult{Next: PathDashboard, Message: msgAlreadyIn}, nil
	}
	return CallbackResult{}, &CallbackError{Message: msgInvalidLink}
}

func gatewayMessage(err error) string {
	if errors.Is(err, gateway.ErrNotConfigured) {
		return gateway.NotConfiguredMessage
	}
	return err.Error()
}
