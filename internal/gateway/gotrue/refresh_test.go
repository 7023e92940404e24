package gotrue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"itsaportal/internal/gateway"
	"itsaportal/internal/gateway/pgstore"
	"itsaportal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := pgstore.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, pgstore.Migrate(db))
	return NewServer(db, Config{Key: []byte("k"), AccessTTL: time.Minute}, zap.NewNop().Sugar())
}

func confirmedUser(t *testing.T, s *Server, email string) {
	t.Helper()
	u, err := s.signUp(context.Background(), gateway.SignUpParams{Email: email, Password: "pw"})
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, s.db.Model(&models.AuthUser{}).Where("id = ?", u.ID).Update("email_confirmed_at", &now).Error)
}

func TestExpiredAccessTokenRotates(t *testing.T) {
	s := newTestServer(t)
	confirmedUser(t, s, "r@s.com")
	sess, err := s.signIn(context.Background(), "r@s.com", "pw")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(5 * time.Minute) }
	c := s.NewClient()
	var events []gateway.AuthEvent
	c.OnAuthStateChange(func(ev gateway.AuthEvent, _ *gateway.Session) { events = append(events, ev) })

	fresh, err := c.SetSession(context.Background(), sess.AccessToken, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, fresh.RefreshToken)
	assert.Equal(t, []gateway.AuthEvent{gateway.EventTokenRefreshed}, events)

	_, err = s.NewClient().SetSession(context.Background(), sess.AccessToken, sess.RefreshToken)
	assert.ErrorIs(t, err, gateway.ErrInvalidToken, "old refresh token is spent")
}

func TestGetSessionRefreshesStaleSession(t *testing.T) {
	s := newTestServer(t)
	confirmedUser(t, s, "t@u.com")
	c := s.NewClient()
	sess, err := c.SignInWithPassword(context.Background(), "t@u.com", "pw")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(5 * time.Minute) }
	got, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEqual(t, sess.AccessToken, got.AccessToken)
}

func TestCallbackLink(t *testing.T) {
	assert.Equal(t, "http://x/auth/callback?code=abc", callbackLink("http://x/auth/callback", "abc", models.TokenSignup))
	assert.Equal(t, "http://x/auth/callback?code=abc&type=recovery", callbackLink("http://x/auth/callback", "abc", models.TokenRecovery))
	assert.Equal(t, "?code=abc", callbackLink("", "abc", models.TokenSignup))
}

func TestRefreshTokenAloneResumes(t *testing.T) {
	s := newTestServer(t)
	confirmedUser(t, s, "o@p.com")
	sess, err := s.signIn(context.Background(), "o@p.com", "pw")
	require.NoError(t, err)

	fresh, refreshed, err := s.resume(context.Background(), "", sess.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.NotEqual(t, sess.RefreshToken, fresh.RefreshToken)

	_, _, err = s.resume(context.Background(), "", "")
	assert.ErrorIs(t, err, gateway.ErrInvalidToken)
}

func TestRefreshTokenRotatesOnce(t *testing.T) {
	s := newTestServer(t)
	confirmedUser(t, s, "c@d.com")
	sess, err := s.signIn(context.Background(), "c@d.com", "pw")
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.refresh(context.Background(), sess.RefreshToken); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_, err = s.refresh(context.Background(), sess.RefreshToken)
	assert.ErrorIs(t, err, gateway.ErrInvalidToken)
}

func TestExpiredRefreshTokenRejected(t *testing.T) {
	s := newTestServer(t)
	confirmedUser(t, s, "e@f.com")
	sess, err := s.signIn(context.Background(), "e@f.com", "pw")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = s.refresh(context.Background(), sess.RefreshToken)
	assert.ErrorIs(t, err, gateway.ErrInvalidToken)
}

func TestCodeRedeemsOnce(t *testing.T) {
	s := newTestServer(t)
	u, err := s.signUp(context.Background(), gateway.SignUpParams{Email: "g@h.com", Password: "pw"})
	require.NoError(t, err)
	var tok models.AuthToken
	require.NoError(t, s.db.First(&tok, "user_id = ?", u.ID).Error)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.redeem(context.Background(), tok.Code); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_, _, err = s.redeem(context.Background(), tok.Code)
	assert.ErrorIs(t, err, gateway.ErrInvalidToken)
}
