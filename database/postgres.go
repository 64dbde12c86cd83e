package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/aurora-shield/aurora-shield/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func NewPostgresClient(dsn string) (*gorm.DB, error) {
	pgClient, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return pgClient, nil
}

// PostgresStore is the client-server backend, built on gorm.
type PostgresStore struct {
	db   *gorm.DB
	opts Options
}

// NewPostgresStore wraps an open gorm connection and migrates the schema.
func NewPostgresStore(db *gorm.DB, opts Options) (*PostgresStore, error) {
	if err := db.AutoMigrate(&models.User{}, &models.Contact{}, &models.Alert{}, &models.LoginLog{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PostgresStore{db: db, opts: opts.withDefaults()}, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var existing models.User
	if err := tx.Where("email = ?", user.Email).First(&existing).Error; err == nil {
		tx.Rollback()
		return ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return err
	}

	if err := tx.Create(user).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}

	return tx.Commit().Error
}

func (s *PostgresStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InLoginTx(ctx context.Context, fn func(tx LoginTx) error) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&postgresLoginTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (s *PostgresStore) LoginLogs(ctx context.Context, email string) ([]models.LoginLog, error) {
	var logs []models.LoginLog
	err := s.db.WithContext(ctx).
		Where("email = ?", email).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

func (s *PostgresStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	s.opts.stampAlert(alert)
	return s.db.WithContext(ctx).Create(alert).Error
}

func (s *PostgresStore) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	alerts := []models.Alert{}
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(clampLimit(limit)).
		Find(&alerts).Error
	return alerts, err
}

func (s *PostgresStore) ListContacts(ctx context.Context, ownerID uint) ([]models.Contact, error) {
	contacts := []models.Contact{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("id ASC").
		Find(&contacts).Error
	return contacts, err
}

func (s *PostgresStore) CreateContact(ctx context.Context, contact *models.Contact) error {
	return s.db.WithContext(ctx).Create(contact).Error
}

func (s *PostgresStore) UpdateContact(ctx context.Context, contact *models.Contact) error {
	result := s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ? AND user_id = ?", contact.ID, contact.UserID).
		Updates(map[string]interface{}{
			"name":         contact.Name,
			"phone":        contact.Phone,
			"email":        contact.Email,
			"relationship": contact.Relationship,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteContact(ctx context.Context, ownerID, id uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Contact{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type postgresLoginTx struct {
	tx *gorm.DB
}

func (t *postgresLoginTx) UserForUpdate(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (t *postgresLoginTx) SetLoginState(ctx context.Context, userID uint, state LoginState) error {
	updates := map[string]interface{}{
		"login_attempts": state.FailedAttempts,
		"locked_until":   state.LockedUntil,
	}
	if state.LastLogin != nil {
		updates["last_login"] = *state.LastLogin
	}
	return t.tx.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

func (t *postgresLoginTx) AppendLoginLog(ctx context.Context, entry *models.LoginLog) error {
	return t.tx.WithContext(ctx).Create(entry).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
