// Package gatewaytest wires a real gateway over an in-memory sqlite database
// and an in-memory blob store for tests.
package gatewaytest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"itsaportal/internal/gateway"
	"itsaportal/internal/gateway/gotrue"
	"itsaportal/internal/gateway/pgstore"
	"itsaportal/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Env struct {
	DB      *gorm.DB
	Auth    *gotrue.Server
	Storage *MemStorage
	Gateway *gateway.Gateway
}

// Option adjusts the auth server configuration.
type Option func(*gotrue.Config)

// AccessTTL shortens access tokens so tests can watch them expire.
func AccessTTL(d time.Duration) Option {
	return func(c *gotrue.Config) { c.AccessTTL = d }
}

func New(t testing.TB, opts ...Option) *Env {
	t.Helper()
	db, err := pgstore.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := pgstore.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := gotrue.Config{Key: []byte("test-key")}
	for _, o := range opts {
		o(&cfg)
	}
	srv := gotrue.NewServer(db, cfg, zap.NewNop().Sugar())
	st := NewMemStorage()
	return &Env{
		DB:      db,
		Auth:    srv,
		Storage: st,
		Gateway: gateway.New(srv.NewClient, pgstore.New(db), st),
	}
}

// Register creates a confirmed auth user and returns its id.
func (e *Env) Register(t testing.TB, email, password string) string {
	t.Helper()
	ctx := context.Background()
	u, err := e.Gateway.NewAuth().SignUp(ctx, gateway.SignUpParams{Email: email, Password: password})
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	now := time.Now()
	if err := e.DB.Model(&models.AuthUser{}).Where("id = ?", u.ID).Update("email_confirmed_at", &now).Error; err != nil {
		t.Fatalf("confirm %s: %v", email, err)
	}
	return u.ID
}

// Client registers a confirmed user with a matching client profile.
func (e *Env) Client(t testing.TB, email string) models.Client {
	t.Helper()
	authID := e.Register(t, email, "secret1")
	c := models.Client{AuthID: authID, Email: email, FirstName: "Test"}
	if err := e.DB.Create(&c).Error; err != nil {
		t.Fatalf("client %s: %v", email, err)
	}
	return c
}

// Staff registers a confirmed user with an active staff row.
func (e *Env) Staff(t testing.TB, email string) string {
	t.Helper()
	authID := e.Register(t, email, "secret1")
	if err := e.DB.Create(&models.StaffMember{AuthID: authID, Email: email, IsActive: true}).Error; err != nil {
		t.Fatalf("staff %s: %v", email, err)
	}
	return authID
}

// Login signs in on a fresh auth client and returns the session.
func (e *Env) Login(t testing.TB, email string) *gateway.Session {
	t.Helper()
	sess, err := e.Gateway.NewAuth().SignInWithPassword(context.Background(), email, "secret1")
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return sess
}

// MemStorage keeps uploaded blobs in memory. Fail makes every upload fail.
type MemStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
	Fail  bool
}

func NewMemStorage() *MemStorage {
	return &MemStorage{blobs: map[string][]byte{}}
}

func (m *MemStorage) Upload(_ context.Context, bucket, path string, body io.Reader, _ int64, _ string) error {
	if m.Fail {
		return gateway.Wrap("storage upload", errors.New("storage unavailable"))
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[bucket+"/"+path] = b
	m.mu.Unlock()
	return nil
}

func (m *MemStorage) SignedURL(_ context.Context, bucket, path string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("mem://%s/%s?ttl=%d", bucket, path, int(ttl.Seconds())), nil
}

func (m *MemStorage) Blob(bucket, path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[bucket+"/"+path]
	return bytes.Clone(b), ok
}

func (m *MemStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
