package identity

import (
	"context"
	"errors"
	"strings"

	"itsaportal/internal/gateway"
	"itsaportal/internal/models"
)

const (
	tableClients = "clients"
	tableStaff   = "staff_members"
)

// lookup holds the profile and staff results for one session. Its fields
// are written once, before done is closed.
type lookup struct {
	gen    uint64
	authID string
	done   chan struct{}

	profile    *models.Client
	profileErr error
	staff      bool
	staffErr   error
}

func (l *lookup) finished() bool {
	select {
	case <-l.done:
		return true
	default:
	}
	return false
}

// startLookup must be called with c.mu held.
func (c *Context) startLookup(gen uint64, sess gateway.Session) *lookup {
	lk := &lookup{gen: gen, authID: sess.User.ID, done: make(chan struct{})}
	go c.runLookup(lk, sess.User)
	return lk
}

func (c *Context) runLookup(lk *lookup, user gateway.User) {
	ctx := c.base
	profile, perr := c.loadProfile(ctx, user)
	staff, serr := c.checkStaff(ctx, user.ID)

	c.mu.Lock()
	lk.profile, lk.profileErr = profile, perr
	lk.staff, lk.staffErr = staff, serr
	close(lk.done)
	closed := c.closed
	current := !closed && c.lookup == lk
	c.mu.Unlock()

	c.warnLookup(closed, "profile lookup failed", user.ID, perr)
	c.warnLookup(closed, "staff check failed", user.ID, serr)
	if current {
		c.notify()
	} else {
		c.lg.Debugw("dropping stale identity lookup", "gen", lk.gen)
	}
}

// warnLookup logs a failed lookup. Cancellation caused by Close is expected
// and stays quiet.
func (c *Context) warnLookup(closed bool, msg, authID string, err error) {
	if err == nil || (closed && errors.Is(err, context.Canceled)) {
		return
	}
	c.lg.Warnw(msg, "auth_user_id", authID, "error", err)
}

// loadProfile finds the client row for user. A missing row is recreated from
// the sign-up metadata so a failed insert at registration heals on the next
// sign-in. Staff accounts without metadata have no profile.
func (c *Context) loadProfile(ctx context.Context, user gateway.User) (*models.Client, error) {
	var rows []models.Client
	if err := c.tables.Select(ctx, tableClients, gateway.Where("auth_user_id", user.ID).First(), &rows); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return &rows[0], nil
	}
	if len(user.Metadata) == 0 {
		return nil, nil
	}
	p := profileFromUser(user)
	if err := c.tables.Insert(ctx, tableClients, p); err != nil {
		return nil, err
	}
	c.lg.Infow("client profile reconciled", "auth_user_id", user.ID)
	return p, nil
}

func profileFromUser(user gateway.User) *models.Client {
	return &models.Client{
		AuthID:    user.ID,
		Email:     strings.ToLower(user.Email),
		FirstName: user.MetaString("first_name"),
		LastName:  user.MetaString("last_name"),
		Phone:     user.MetaString("phone"),
	}
}

func (c *Context) checkStaff(ctx context.Context, authID string) (bool, error) {
	var rows []models.StaffMember
	q := gateway.Where("auth_user_id", authID).And("is_active", true).First()
	if err := c.tables.Select(ctx, tableStaff, q, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
