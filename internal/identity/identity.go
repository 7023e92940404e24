// Package identity keeps track of who is using the portal: the gateway
// session, the linked client profile and the staff capability.
//
// A Context is created per consumer (one per HTTP request in the server),
// follows the gateway's auth-state events for its lifetime and must be
// closed when the consumer goes away.
package identity

import (
	"context"
	"sort"
	"sync"

	"itsaportal/internal/gateway"
	"itsaportal/internal/models"

	"go.uber.org/zap"
)

type Capability int

const (
	Unauthenticated Capability = iota
	AuthenticatedNonStaff
	Staff
)

func (c Capability) String() string {
	switch c {
	case AuthenticatedNonStaff:
		return "authenticated"
	case Staff:
		return "staff"
	}
	return "unauthenticated"
}

// State is a snapshot handed to subscribers.
type State struct {
	Loading  bool
	Event    gateway.AuthEvent
	Session  *gateway.Session
	Profile  *models.Client
	Staff    bool
	Resolved bool
}

type Options struct {
	// CallbackURL receives email verification links.
	CallbackURL string
	// ResetURL receives password recovery links. Defaults to CallbackURL.
	ResetURL string
}

type Context struct {
	auth   gateway.Auth
	tables gateway.Tables
	lg     *zap.SugaredLogger
	opts   Options

	base   context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	loading   bool
	closed    bool
	event     gateway.AuthEvent
	session   *gateway.Session
	lookup    *lookup
	gen       uint64
	subs      map[int]func(State)
	nextSub   int
	authUnsub func()
}

func New(gw *gateway.Gateway, lg *zap.SugaredLogger, opts Options) *Context {
	if opts.ResetURL == "" {
		opts.ResetURL = opts.CallbackURL
	}
	base, cancel := context.WithCancel(context.Background())
	c := &Context{
		auth:    gw.NewAuth(),
		tables:  gw.Tables(),
		lg:      lg,
		opts:    opts,
		base:    base,
		cancel:  cancel,
		loading: true,
		subs:    map[int]func(State){},
	}
	c.authUnsub = c.auth.OnAuthStateChange(c.onAuthEvent)
	return c
}

// Initialize asks the gateway for its current session. Loading turns false as
// soon as the session is known; profile and staff lookups finish later.
func (c *Context) Initialize(ctx context.Context) error {
	sess, err := c.auth.GetSession(ctx)
	if err != nil {
		c.lg.Warnw("session lookup failed", "error", err)
		sess = nil
	}
	c.apply(gateway.EventInitialSession, sess)
	return err
}

// Resume adopts tokens carried by a request. A rejected token pair leaves
// the context anonymous and returns the gateway's reason.
func (c *Context) Resume(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" && refreshToken == "" {
		return c.Initialize(ctx)
	}
	if _, err := c.auth.SetSession(ctx, accessToken, refreshToken); err != nil {
		c.apply(gateway.EventInitialSession, nil)
		return err
	}
	return nil
}

func (c *Context) onAuthEvent(ev gateway.AuthEvent, sess *gateway.Session) {
	c.apply(ev, sess)
}

// apply replaces the session and starts a fresh lookup. Results of lookups
// started for earlier sessions are discarded.
func (c *Context) apply(ev gateway.AuthEvent, sess *gateway.Session) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.event = ev
	c.session = sess
	c.gen++
	if sess == nil {
		c.lookup = nil
	} else if ev != gateway.EventTokenRefreshed || c.lookup == nil || c.lookup.authID != sess.User.ID {
		c.lookup = c.startLookup(c.gen, *sess)
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Context) snapshot() State {
	st := State{Loading: c.loading, Event: c.event}
	if c.session != nil {
		s := *c.session
		st.Session = &s
	}
	if lk := c.lookup; lk != nil && lk.finished() {
		st.Resolved = true
		st.Staff = lk.staff
		if lk.profile != nil {
			p := *lk.profile
			st.Profile = &p
		}
	}
	return st
}

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Context) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Context) Session() *gateway.Session {
	return c.State().Session
}

// Subscribe registers fn for state changes. fn runs on the goroutine that
// caused the change and must not block.
func (c *Context) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Context) notify() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	st := c.snapshot()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// Profile waits for the profile lookup of the current session. It returns
// nil with no error when nobody is signed in or no profile row exists.
func (c *Context) Profile(ctx context.Context) (*models.Client, error) {
	lk, err := c.await(ctx)
	if err != nil || lk == nil {
		return nil, err
	}
	if lk.profile == nil {
		return nil, lk.profileErr
	}
	p := *lk.profile
	return &p, lk.profileErr
}

// Capability waits for the staff lookup of the current session. A failed
// lookup reports AuthenticatedNonStaff together with the error.
func (c *Context) Capability(ctx context.Context) (Capability, error) {
	lk, err := c.await(ctx)
	if err != nil {
		return Unauthenticated, err
	}
	if lk == nil {
		return Unauthenticated, nil
	}
	if lk.staff {
		return Staff, nil
	}
	return AuthenticatedNonStaff, lk.staffErr
}

// await blocks until the current lookup settles, following session changes
// that happen while waiting.
func (c *Context) await(ctx context.Context) (*lookup, error) {
	for {
		c.mu.Lock()
		lk := c.lookup
		c.mu.Unlock()
		if lk == nil {
			return nil, nil
		}
		select {
		case <-lk.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.mu.Lock()
		current := c.lookup == lk
		c.mu.Unlock()
		if current {
			return lk, nil
		}
	}
}

// Close stops following auth events. Lookups still in flight are dropped.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.lookup = nil
	c.subs = map[int]func(State){}
	c.mu.Unlock()
	c.authUnsub()
	c.cancel()
}
