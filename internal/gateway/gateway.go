// Package gateway is the contract between the portal and its hosted backend:
// credentials and sessions (Auth), row storage (Tables) and file blobs
// (Storage). Portal code depends on these interfaces only.
package gateway

import (
	"context"
	"errors"
	"io"
	"time"
)

// NotConfiguredMessage is shown to users whenever a mutation is attempted
// without gateway credentials.
const NotConfiguredMessage = "Backend not configured. Please add gateway credentials."

var (
	ErrNotConfigured      = errors.New("backend not configured")
	ErrNotFound           = errors.New("row not found")
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrUserExists         = errors.New("User already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNoSession          = errors.New("Auth session missing")
)

// Error carries a failure returned by the remote service. Its message is the
// service's own message, untouched, so views can show it verbatim.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) || errors.Is(err, ErrNotConfigured) {
		return err
	}
	return &Error{Op: op, Err: err}
}

type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	Metadata         map[string]any `json:"user_metadata,omitempty"`
}

// MetaString reads a string field from the user's sign-up metadata.
func (u User) MetaString(key string) string {
	s, _ := u.Metadata[key].(string)
	return s
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type AuthEvent string

const (
	EventInitialSession   AuthEvent = "INITIAL_SESSION"
	EventSignedIn         AuthEvent = "SIGNED_IN"
	EventSignedOut        AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed   AuthEvent = "TOKEN_REFRESHED"
	EventPasswordRecovery AuthEvent = "PASSWORD_RECOVERY"
	EventUserUpdated      AuthEvent = "USER_UPDATED"
)

// AuthListener receives auth-state changes. session is nil after sign-out.
type AuthListener func(event AuthEvent, session *Session)

type SignUpParams struct {
	Email      string
	Password   string
	Metadata   map[string]any
	RedirectTo string
}

// Auth is one consumer's view of the auth service. Each instance holds its own
// current session and listener set.
type Auth interface {
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn AuthListener) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, p SignUpParams) (*User, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	ExchangeCodeForSession(ctx context.Context, code string) (*Session, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	UpdatePassword(ctx context.Context, password string) error
}

// Query is an equality filter with an optional ordering column.
type Query struct {
	Eq      map[string]any
	OrderBy string
	Desc    bool
	Limit   int
}

func Where(col string, v any) Query {
	return Query{Eq: map[string]any{col: v}}
}

func (q Query) And(col string, v any) Query {
	eq := make(map[string]any, len(q.Eq)+1)
	for k, val := range q.Eq {
		eq[k] = val
	}
	eq[col] = v
	q.Eq = eq
	return q
}

// Newest orders by created_at descending.
func (q Query) Newest() Query {
	q.OrderBy, q.Desc = "created_at", true
	return q
}

func (q Query) First() Query {
	q.Limit = 1
	return q
}

type Tables interface {
	Select(ctx context.Context, table string, q Query, dest any) error
	Insert(ctx context.Context, table string, row any) error
	UpdateByID(ctx context.Context, table, id string, fields map[string]any) error
}

type Storage interface {
	Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) error
	SignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
}

// Gateway bundles the three services. NewAuth hands out a fresh auth client
// per consumer.
type Gateway struct {
	newAuth    func() Auth
	tables     Tables
	storage    Storage
	configured bool
}

func New(newAuth func() Auth, tables Tables, storage Storage) *Gateway {
	return &Gateway{newAuth: newAuth, tables: tables, storage: storage, configured: true}
}

func (g *Gateway) NewAuth() Auth    { return g.newAuth() }
func (g *Gateway) Tables() Tables   { return g.tables }
func (g *Gateway) Storage() Storage { return g.storage }
func (g *Gateway) Configured() bool { return g.configured }
