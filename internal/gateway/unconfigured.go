package gateway

import (
	"context"
	"io"
	"time"
)

// Unconfigured returns a gateway for a process started without credentials:
// mutations fail with ErrNotConfigured and reads come back empty.
func Unconfigured() *Gateway {
	return &Gateway{
		newAuth: func() Auth { return offlineAuth{} },
		tables:  offlineTables{},
		storage: offlineStorage{},
	}
}

type offlineAuth struct{}

func (offlineAuth) GetSession(context.Context) (*Session, error) { return nil, nil }
func (offlineAuth) OnAuthStateChange(AuthListener) func()        { return func() {} }
func (offlineAuth) SignInWithPassword(context.Context, string, string) (*Session, error) {
	return nil, ErrNotConfigured
}
func (offlineAuth) SignUp(context.Context, SignUpParams) (*User, error) { return nil, ErrNotConfigured }
func (offlineAuth) SignOut(context.Context) error                       { return nil }
func (offlineAuth) ResetPasswordForEmail(context.Context, string, string) error {
	return ErrNotConfigured
}
func (offlineAuth) ExchangeCodeForSession(context.Context, string) (*Session, error) {
	return nil, ErrNotConfigured
}
func (offlineAuth) SetSession(context.Context, string, string) (*Session, error) {
	return nil, ErrNotConfigured
}
func (offlineAuth) UpdatePassword(context.Context, string) error { return ErrNotConfigured }

type offlineTables struct{}

func (offlineTables) Select(context.Context, string, Query, any) error { return nil }
func (offlineTables) Insert(context.Context, string, any) error        { return ErrNotConfigured }
func (offlineTables) UpdateByID(context.Context, string, string, map[string]any) error {
	return ErrNotConfigured
}

type offlineStorage struct{}

func (offlineStorage) Upload(context.Context, string, string, io.Reader, int64, string) error {
	return ErrNotConfigured
}
func (offlineStorage) SignedURL(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}
