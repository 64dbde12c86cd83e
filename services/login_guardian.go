package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/geo"
	"github.com/aurora-shield/aurora-shield/models"
	"github.com/aurora-shield/aurora-shield/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password; callers must not be able to tell them apart.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account temporarily locked")
)

// SessionIssuer creates the session handed out on a successful login.
type SessionIssuer interface {
	Issue(ctx context.Context, s session.Session) (string, *session.Session, error)
}

type LoginAttempt struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	UserID  uint
	Name    string
	Email   string
	Token   string
	Session *session.Session
}

type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

var DefaultLockoutPolicy = LockoutPolicy{Threshold: 5, Duration: 15 * time.Minute}

// LoginGuardian applies the brute-force policy around password checks.
type LoginGuardian struct {
	store    database.Store
	sessions SessionIssuer
	locator  geo.Locator
	policy   LockoutPolicy
	security *zap.Logger
	now      func() time.Time
}

func NewLoginGuardian(store database.Store, sessions SessionIssuer, locator geo.Locator, policy LockoutPolicy, logger *zap.Logger) *LoginGuardian {
	if policy.Threshold <= 0 {
		policy.Threshold = DefaultLockoutPolicy.Threshold
	}
	if policy.Duration <= 0 {
		policy.Duration = DefaultLockoutPolicy.Duration
	}
	return &LoginGuardian{
		store:    store,
		sessions: sessions,
		locator:  locator,
		policy:   policy,
		security: logger.Named("security"),
		now:      time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (g *LoginGuardian) WithClock(now func() time.Time) *LoginGuardian {
	g.now = now
	return g
}

// Authenticate runs one login attempt. The user row, counter update and audit
// entry are handled in a single store transaction; a store failure rolls all
// of it back and is returned as is. Policy rejections are ErrAccountLocked and
// ErrInvalidCredentials, returned after the audit entry has been committed.
// The session is issued only after commit, so no network call runs while the
// row is locked.
func (g *LoginGuardian) Authenticate(ctx context.Context, attempt LoginAttempt) (*LoginResult, error) {
	email := NormalizeEmail(attempt.Email)

	var (
		verified *models.User
		outcome  error
	)
	err := g.store.InLoginTx(ctx, func(tx database.LoginTx) error {
		now := g.now()
		entry := &models.LoginLog{
			Email:     email,
			IPAddress: attempt.IPAddress,
			UserAgent: attempt.UserAgent,
			Timestamp: now,
		}

		user, err := tx.UserForUpdate(ctx, email)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("load user: %w", err)
		}
		if user != nil {
			entry.UserID = &user.ID
		}

		if user != nil && user.IsLocked(now) {
			outcome = ErrAccountLocked
			g.security.Warn("login attempt on locked account",
				zap.String("email", email),
				zap.String("ip", attempt.IPAddress),
				zap.Time("locked_until", *user.LockedUntil))
			return tx.AppendLoginLog(ctx, entry)
		}

		if user == nil || !checkPassword(user.PasswordHash, attempt.Password) {
			if user == nil {
				checkPassword(dummyHash(), attempt.Password)
			} else if err := g.recordFailure(ctx, tx, user, now, attempt.IPAddress); err != nil {
				return err
			}
			outcome = ErrInvalidCredentials
			g.security.Warn("login failed",
				zap.String("email", email),
				zap.String("ip", attempt.IPAddress))
			return tx.AppendLoginLog(ctx, entry)
		}

		if err := tx.SetLoginState(ctx, user.ID, database.LoginState{
			FailedAttempts: 0,
			LockedUntil:    nil,
			LastLogin:      &now,
		}); err != nil {
			return fmt.Errorf("reset login state: %w", err)
		}

		entry.Success = true
		if err := tx.AppendLoginLog(ctx, entry); err != nil {
			return fmt.Errorf("append login log: %w", err)
		}
		verified = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}

	token, sess, err := g.sessions.Issue(ctx, session.Session{
		UserID:    verified.ID,
		Name:      verified.Name,
		Email:     verified.Email,
		IPAddress: attempt.IPAddress,
		UserAgent: attempt.UserAgent,
		Location:  g.locator.Locate(ctx, attempt.IPAddress),
	})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	g.security.Info("login succeeded",
		zap.String("email", email),
		zap.String("ip", attempt.IPAddress),
		zap.String("location", sess.Location))
	return &LoginResult{
		UserID:  verified.ID,
		Name:    verified.Name,
		Email:   verified.Email,
		Token:   token,
		Session: sess,
	}, nil
}

// recordFailure bumps the counter and, on reaching the threshold, sets the
// lock in the same write.
func (g *LoginGuardian) recordFailure(ctx context.Context, tx database.LoginTx, user *models.User, now time.Time, ip string) error {
	state := database.LoginState{
		FailedAttempts: user.FailedAttempts + 1,
		LockedUntil:    user.LockedUntil,
	}
	if state.FailedAttempts >= g.policy.Threshold {
		lockedUntil := now.Add(g.policy.Duration)
		state.LockedUntil = &lockedUntil
		g.security.Warn("account locked",
			zap.String("email", user.Email),
			zap.String("ip", ip),
			zap.Int("failed_attempts", state.FailedAttempts),
			zap.Time("locked_until", lockedUntil))
	}
	if err := tx.SetLoginState(ctx, user.ID, state); err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

// dummyHash is compared against when the email is unknown so both failure
// paths spend the same bcrypt time.
func dummyHash() string {
	dummyOnce.Do(func() {
		h, _ := bcrypt.GenerateFromPassword([]byte("aurora-shield-dummy"), bcrypt.DefaultCost)
		dummy = string(h)
	})
	return dummy
}
