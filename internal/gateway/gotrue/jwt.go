package gotrue

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Subject string
	Email   string
	JWTID   string
}

var errTokenExpired = errors.New("token expired")

func (s *Server) sign(userID, email, jti string, exp time.Time) (string, error) {
	mc := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"jti":   jti,
		"exp":   exp.Unix(),
		"iat":   s.now().Unix(),
		"role":  "authenticated",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	return token.SignedString(s.cfg.Key)
}

func (s *Server) verify(tokenStr string) (claims, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.cfg.Key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return claims{}, errTokenExpired
	}
	if err != nil || !tok.Valid {
		return claims{}, errors.New("invalid token")
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return claims{}, errors.New("invalid claims")
	}
	sub, _ := mapc["sub"].(string)
	email, _ := mapc["email"].(string)
	jti, _ := mapc["jti"].(string)
	return claims{Subject: sub, Email: email, JWTID: jti}, nil
}
