package database

import (
	"context"
	"errors"
	"time"

	"github.com/aurora-shield/aurora-shield/models"
)

// MaxRecentAlerts caps every read of the alert feed.
const MaxRecentAlerts = 100

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// LoginState is the counter/lock pair of a user. It is always written as a
// single update.
type LoginState struct {
	FailedAttempts int
	LockedUntil    *time.Time
	LastLogin      *time.Time
}

// LoginTx is the store as seen from inside a login transaction. The row
// returned by UserForUpdate stays locked until the transaction ends.
type LoginTx interface {
	UserForUpdate(ctx context.Context, email string) (*models.User, error)
	SetLoginState(ctx context.Context, userID uint, state LoginState) error
	AppendLoginLog(ctx context.Context, entry *models.LoginLog) error
}

// Store is implemented once per SQL backend. Pick one with Open.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id uint) error

	// InLoginTx runs fn in one transaction. Any error from fn rolls back.
	InLoginTx(ctx context.Context, fn func(tx LoginTx) error) error
	LoginLogs(ctx context.Context, email string) ([]models.LoginLog, error)

	CreateAlert(ctx context.Context, alert *models.Alert) error
	RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error)

	ListContacts(ctx context.Context, ownerID uint) ([]models.Contact, error)
	CreateContact(ctx context.Context, contact *models.Contact) error
	UpdateContact(ctx context.Context, contact *models.Contact) error
	DeleteContact(ctx context.Context, ownerID, id uint) error

	Ping(ctx context.Context) error
	Close() error
}

// Options are shared by both backends.
type Options struct {
	// Location is used for the display date of alerts.
	Location *time.Location
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) stampAlert(alert *models.Alert) {
	now := o.Now()
	alert.CreatedAt = now
	alert.Date = now.In(o.Location).Format(models.DateLayout)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxRecentAlerts {
		return MaxRecentAlerts
	}
	return limit
}
