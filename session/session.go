package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "aurora-shield"

var (
	ErrInvalidToken    = errors.New("invalid session token")
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the server-side record behind a token.
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps session records until they expire or are revoked.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Manager issues HS256 tokens whose jti points at a record in Store. A token
// is only accepted while its record exists, so logout is immediate.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue stores s under a fresh id and returns the signed token.
func (m *Manager) Issue(ctx context.Context, s Session) (string, *Session, error) {
	now := m.now()
	s.ID = uuid.New().String()
	s.CreatedAt = now
	s.ExpiresAt = now.Add(m.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatUint(uint64(s.UserID), 10),
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}

	if err := m.store.Save(ctx, &s, m.ttl); err != nil {
		return "", nil, fmt.Errorf("save session: %w", err)
	}
	return token, &s, nil
}

// Validate checks the signature, expiry and that the session was not revoked.
func (m *Manager) Validate(ctx context.Context, token string) (*Session, error) {
	claims, err := m.parse(token, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}

	s, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if strconv.FormatUint(uint64(s.UserID), 10) != claims.Subject {
		return nil, ErrInvalidToken
	}
	return s, nil
}

// Revoke deletes the record behind token. Expired tokens can still be
// revoked.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, claims.ID)
}

func (m *Manager) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
