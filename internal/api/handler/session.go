package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/config"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionCookie = "silva_session"
	issuer        = "silvasentinel"
)

// Sessions issues and verifies the signed session token kept in the
// silva_session cookie. The token only names the account; role and active
// flag are read from storage on every request.
type Sessions struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	secure      bool
	now         func() time.Time
}

func NewSessions(cfg config.SessionConfig) *Sessions {
	return &Sessions{
		secret:      []byte(cfg.Secret),
		ttl:         cfg.TTL,
		rememberTTL: cfg.RememberTTL,
		secure:      cfg.SecureCookie,
		now:         time.Now,
	}
}

// Session is a verified token.
type Session struct {
	AccountID uint
	ID        string
	ExpiresAt time.Time
}

// Issue signs a new token for accountID.
func (s *Sessions) Issue(accountID uint, remember bool) (string, *Session, error) {
	ttl := s.ttl
	if remember {
		ttl = s.rememberTTL
	}
	now := s.now()
	sess := &Session{
		AccountID: accountID,
		ID:        uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(accountID), 10),
		ID:        sess.ID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return token, sess, nil
}

// Parse verifies signature, issuer and expiry.
func (s *Sessions) Parse(token string) (*Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, errors.New("session subject is not an account id")
	}
	if claims.ID == "" {
		return nil, errors.New("session has no id")
	}
	return &Session{AccountID: uint(id), ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
