// Package gotrue is the gateway's auth service: password credentials, signed
// sessions with refresh rotation, and one-time codes for email confirmation and
// password recovery, all kept in the gateway database.
package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"itsaportal/internal/gateway"
	"itsaportal/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Config struct {
	Key        []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	CodeTTL    time.Duration
}

type Server struct {
	db  *gorm.DB
	cfg Config
	lg  *zap.SugaredLogger
	now func() time.Time
}

func NewServer(db *gorm.DB, cfg Config, lg *zap.SugaredLogger) *Server {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = 24 * time.Hour
	}
	return &Server{db: db, cfg: cfg, lg: lg, now: time.Now}
}

// NewClient returns an auth client with no session and no listeners.
func (s *Server) NewClient() gateway.Auth {
	return &Client{srv: s, listeners: map[int]gateway.AuthListener{}}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (s *Server) userByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	var u models.AuthUser
	if err := s.db.WithContext(ctx).First(&u, "email = ?", normalizeEmail(email)).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Server) signUp(ctx context.Context, p gateway.SignUpParams) (*models.AuthUser, error) {
	email := normalizeEmail(p.Email)
	if email == "" || p.Password == "" {
		return nil, errors.New("email and password required")
	}
	if _, err := s.userByEmail(ctx, email); err == nil {
		return nil, gateway.ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := hashPassword(p.Password)
	if err != nil {
		return nil, errors.New("hash error")
	}
	now := s.now()
	u := models.AuthUser{
		Email:        email,
		PasswordHash: hash,
		Metadata:     models.MustJSONB(p.Metadata),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	if err := s.issueCode(ctx, u, models.TokenSignup, p.RedirectTo); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Server) signIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, gateway.ErrInvalidCredentials
	}
	if err := checkPassword(u.PasswordHash, password); err != nil {
		return nil, gateway.ErrInvalidCredentials
	}
	if u.EmailConfirmedAt == nil {
		return nil, gateway.ErrEmailNotConfirmed
	}
	return s.issueSession(ctx, *u)
}

func (s *Server) issueSession(ctx context.Context, u models.AuthUser) (*gateway.Session, error) {
	now := s.now()
	sess := models.AuthSession{
		JTI:              uuid.NewString(),
		UserID:           u.ID,
		RefreshToken:     uuid.NewString(),
		ExpiresAt:        now.Add(s.cfg.AccessTTL),
		RefreshExpiresAt: now.Add(s.cfg.RefreshTTL),
		CreatedAt:        now,
	}
	tok, err := s.sign(u.ID, u.Email, sess.JTI, sess.ExpiresAt)
	if err != nil {
		return nil, errors.New("token error")
	}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, err
	}
	return &gateway.Session{
		AccessToken:  tok,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		User:         toUser(u),
	}, nil
}

// resume validates an access token against its session row. A missing or
// expired access token is traded for a new session when the refresh token is
// still good.
func (s *Server) resume(ctx context.Context, access, refresh string) (*gateway.Session, bool, error) {
	var c claims
	err := errTokenExpired
	if access != "" {
		c, err = s.verify(access)
	}
	if errors.Is(err, errTokenExpired) && refresh != "" {
		sess, err := s.refresh(ctx, refresh)
		return sess, true, err
	}
	if err != nil {
		return nil, false, gateway.ErrInvalidToken
	}
	var row models.AuthSession
	if c.JWTID == "" || s.db.WithContext(ctx).First(&row, "jti = ?", c.JWTID).Error != nil {
		return nil, false, gateway.ErrInvalidToken
	}
	if row.RevokedAt != nil || s.now().After(row.ExpiresAt) {
		return nil, false, gateway.ErrInvalidToken
	}
	var u models.AuthUser
	if err := s.db.WithContext(ctx).First(&u, "id = ?", row.UserID).Error; err != nil {
		return nil, false, gateway.ErrInvalidToken
	}
	return &gateway.Session{
		AccessToken:  access,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    row.ExpiresAt,
		User:         toUser(u),
	}, false, nil
}

// refresh spends a refresh token. The conditional revoke claims it, so only
// one caller can rotate a given token.
func (s *Server) refresh(ctx context.Context, refresh string) (*gateway.Session, error) {
	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("refresh_token = ? AND revoked_at IS NULL", refresh).
		Update("revoked_at", &now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gateway.ErrInvalidToken
	}
	var row models.AuthSession
	if err := s.db.WithContext(ctx).First(&row, "refresh_token = ?", refresh).Error; err != nil {
		return nil, gateway.ErrInvalidToken
	}
	if now.After(row.RefreshExpiresAt) {
		return nil, gateway.ErrInvalidToken
	}
	var u models.AuthUser
	if err := s.db.WithContext(ctx).First(&u, "id = ?", row.UserID).Error; err != nil {
		return nil, gateway.ErrInvalidToken
	}
	return s.issueSession(ctx, u)
}

func (s *Server) revoke(ctx context.Context, jti string) error {
	now := s.now()
	return s.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", &now).Error
}

func (s *Server) jtiFor(access string) string {
	c, err := s.verify(access)
	if err != nil {
		return ""
	}
	return c.JWTID
}

func (s *Server) issueCode(ctx context.Context, u models.AuthUser, kind, redirectTo string) error {
	now := s.now()
	t := models.AuthToken{
		Code:      strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    u.ID,
		Kind:      kind,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return err
	}
	// Links are not mailed; operators pick them up from the log.
	s.lg.Infow("auth link issued", "kind", kind, "email", u.Email, "link", callbackLink(redirectTo, t.Code, kind))
	return nil
}

func callbackLink(redirectTo, code, kind string) string {
	u, err := url.Parse(redirectTo)
	if err != nil || redirectTo == "" {
		return "?code=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("code", code)
	if kind == models.TokenRecovery {
		q.Set("type", "recovery")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// redeem consumes a one-time code. Codes work once and only before expiry.
func (s *Server) redeem(ctx context.Context, code string) (*models.AuthToken, *models.AuthUser, error) {
	var t models.AuthToken
	var u models.AuthUser
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, "code = ?", code).Error; err != nil {
			return gateway.ErrInvalidToken
		}
		now := s.now()
		if t.UsedAt != nil || now.After(t.ExpiresAt) {
			return gateway.ErrInvalidToken
		}
		res := tx.Model(&models.AuthToken{}).
			Where("code = ? AND used_at IS NULL", code).
			Update("used_at", &now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gateway.ErrInvalidToken
		}
		t.UsedAt = &now
		if err := tx.First(&u, "id = ?", t.UserID).Error; err != nil {
			return gateway.ErrInvalidToken
		}
		if t.Kind == models.TokenSignup && u.EmailConfirmedAt == nil {
			u.EmailConfirmedAt = &now
			u.UpdatedAt = now
			return tx.Save(&u).Error
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &t, &u, nil
}

func (s *Server) resetPassword(ctx context.Context, email, redirectTo string) error {
	u, err := s.userByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Unknown addresses succeed silently.
		return nil
	}
	if err != nil {
		return err
	}
	return s.issueCode(ctx, *u, models.TokenRecovery, redirectTo)
}

func (s *Server) updatePassword(ctx context.Context, userID, password string) (*models.AuthUser, error) {
	if password == "" {
		return nil, errors.New("password required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, errors.New("hash error")
	}
	var u models.AuthUser
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, gateway.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Save(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func toUser(u models.AuthUser) gateway.User {
	var meta map[string]any
	_ = json.Unmarshal(u.Metadata, &meta)
	return gateway.User{ID: u.ID, Email: u.Email, EmailConfirmedAt: u.EmailConfirmedAt, Metadata: meta}
}
