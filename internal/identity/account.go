package identity

import (
	"context"
	"strings"

	"itsaportal/internal/gateway"
	"itsaportal/internal/lifecycle"
	"itsaportal/internal/models"
)

const MinPasswordLength = 6

// ProfileFields are copied onto the client row created at sign-up.
type ProfileFields struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Registration is the sign-up form as submitted.
type Registration struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	ProfileFields
}

// Validate runs the form checks that happen before the gateway is called.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return &lifecycle.ValidationError{Field: "email", Message: "Email is required"}
	}
	if r.Password != r.ConfirmPassword {
		return &lifecycle.ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	}
	if len(r.Password) < MinPasswordLength {
		return &lifecycle.ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

// ProfileError reports an account that was created without its client row.
// The row is recreated on the account's next sign-in.
type ProfileError struct {
	User *gateway.User
	Err  error
}

func (e *ProfileError) Error() string { return "profile not saved: " + e.Err.Error() }
func (e *ProfileError) Unwrap() error { return e.Err }

func required(field, value, msg string) error {
	if strings.TrimSpace(value) == "" {
		return &lifecycle.ValidationError{Field: field, Message: msg}
	}
	return nil
}

// SignIn checks credentials with the gateway. The session reaches the
// context through the auth-state event.
func (c *Context) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	if err := required("email", email, "Email is required"); err != nil {
		return nil, err
	}
	if err := required("password", password, "Password is required"); err != nil {
		return nil, err
	}
	return c.auth.SignInWithPassword(ctx, strings.TrimSpace(email), password)
}

// SignUp creates the gateway account and then the matching client row. When
// only the row insert fails the user is returned with a *ProfileError.
func (c *Context) SignUp(ctx context.Context, email, password string, fields ProfileFields) (*gateway.User, error) {
	email = strings.TrimSpace(email)
	if err := required("email", email, "Email is required"); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, &lifecycle.ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	user, err := c.auth.SignUp(ctx, gateway.SignUpParams{
		Email:    email,
		Password: password,
		Metadata: map[string]any{
			"first_name": fields.FirstName,
			"last_name":  fields.LastName,
			"phone":      fields.Phone,
		},
		RedirectTo: c.opts.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	row := &models.Client{
		AuthID:    user.ID,
		Email:     strings.ToLower(email),
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
		Phone:     fields.Phone,
	}
	if err := c.tables.Insert(ctx, tableClients, row); err != nil {
		c.lg.Warnw("client profile insert failed", "auth_user_id", user.ID, "error", err)
		return user, &ProfileError{User: user, Err: err}
	}
	return user, nil
}

// SignOut asks the gateway to end the session and clears local state even
// when that call fails.
func (c *Context) SignOut(ctx context.Context) error {
	err := c.auth.SignOut(ctx)
	if err != nil {
		c.lg.Warnw("gateway sign out failed", "error", err)
	}
	c.apply(gateway.EventSignedOut, nil)
	return err
}

func (c *Context) ResetPassword(ctx context.Context, email string) error {
	if err := required("email", email, "Email is required"); err != nil {
		return err
	}
	return c.auth.ResetPasswordForEmail(ctx, strings.TrimSpace(email), c.opts.ResetURL)
}

// UpdatePassword sets a new password for the signed-in user, typically right
// after a recovery link was followed.
func (c *Context) UpdatePassword(ctx context.Context, password, confirm string) error {
	if password != confirm {
		return &lifecycle.ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	}
	if len(password) < MinPasswordLength {
		return &lifecycle.ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return c.auth.UpdatePassword(ctx, password)
}
