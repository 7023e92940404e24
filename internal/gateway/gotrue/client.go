package gotrue

import (
	"context"
	"sort"
	"sync"

	"itsaportal/internal/gateway"
	"itsaportal/internal/models"
)

// Client holds one consumer's session and auth-state listeners.
type Client struct {
	srv *Server

	mu        sync.Mutex
	session   *gateway.Session
	listeners map[int]gateway.AuthListener
	nextID    int
}

func (c *Client) GetSession(ctx context.Context) (*gateway.Session, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil, nil
	}
	if c.srv.now().Before(sess.ExpiresAt) {
		cp := *sess
		return &cp, nil
	}
	fresh, err := c.srv.refresh(ctx, sess.RefreshToken)
	if err != nil {
		c.set(nil, gateway.EventSignedOut)
		return nil, nil
	}
	c.set(fresh, gateway.EventTokenRefreshed)
	cp := *fresh
	return &cp, nil
}

func (c *Client) OnAuthStateChange(fn gateway.AuthListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*gateway.Session, error) {
	sess, err := c.srv.signIn(ctx, email, password)
	if err != nil {
		return nil, gateway.Wrap("sign in", err)
	}
	c.set(sess, gateway.EventSignedIn)
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, p gateway.SignUpParams) (*gateway.User, error) {
	u, err := c.srv.signUp(ctx, p)
	if err != nil {
		return nil, gateway.Wrap("sign up", err)
	}
	user := toUser(*u)
	return &user, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	var err error
	if sess != nil {
		if jti := c.srv.jtiFor(sess.AccessToken); jti != "" {
			err = c.srv.revoke(ctx, jti)
		}
	}
	c.set(nil, gateway.EventSignedOut)
	return gateway.Wrap("sign out", err)
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return gateway.Wrap("reset password", c.srv.resetPassword(ctx, email, redirectTo))
}

func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) (*gateway.Session, error) {
	t, u, err := c.srv.redeem(ctx, code)
	if err != nil {
		return nil, gateway.Wrap("exchange code", err)
	}
	sess, err := c.srv.issueSession(ctx, *u)
	if err != nil {
		return nil, gateway.Wrap("exchange code", err)
	}
	ev := gateway.EventSignedIn
	if t.Kind == models.TokenRecovery {
		ev = gateway.EventPasswordRecovery
	}
	c.set(sess, ev)
	return sess, nil
}

func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*gateway.Session, error) {
	sess, refreshed, err := c.srv.resume(ctx, accessToken, refreshToken)
	if err != nil {
		return nil, gateway.Wrap("set session", err)
	}
	ev := gateway.EventSignedIn
	if refreshed {
		ev = gateway.EventTokenRefreshed
	}
	c.set(sess, ev)
	return sess, nil
}

func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return gateway.Wrap("update user", gateway.ErrNoSession)
	}
	u, err := c.srv.updatePassword(ctx, sess.User.ID, password)
	if err != nil {
		return gateway.Wrap("update user", err)
	}
	next := *sess
	next.User = toUser(*u)
	c.set(&next, gateway.EventUserUpdated)
	return nil
}

// set replaces the session and notifies listeners in subscription order,
// outside the lock so listeners may call back into the client.
func (c *Client) set(sess *gateway.Session, ev gateway.AuthEvent) {
	c.mu.Lock()
	c.session = sess
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]gateway.AuthListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()
	for _, fn := range fns {
		var cp *gateway.Session
		if sess != nil {
			s := *sess
			cp = &s
		}
		fn(ev, cp)
	}
}
