package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aurora-shield/aurora-shield/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	phone TEXT,
	last_login TEXT,
	login_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until TEXT,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	phone TEXT NOT NULL,
	email TEXT,
	relationship TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_contacts_user_id ON contacts (user_id);
CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	name TEXT NOT NULL,
	situation TEXT NOT NULL,
	message TEXT,
	lat TEXT,
	lng TEXT,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS login_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	email TEXT,
	ip_address TEXT,
	user_agent TEXT,
	success BOOLEAN,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_login_logs_email ON login_logs (email);
`

// SQLiteStore is the embedded backend. It keeps a single connection open so
// every transaction is serialized, which is what makes the login
// read-modify-write safe without row locks.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" works
// for tests.
func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, stmt := range append(pragmas, sqliteSchema) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}

	return &SQLiteStore{db: db, opts: opts.withDefaults()}, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.opts.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, phone, login_attempts, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		user.Name, user.Email, user.PasswordHash, user.Phone, formatTime(user.CreatedAt))
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return ErrDuplicateEmail
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint(id)
	return nil
}

const userColumns = `id, name, email, password_hash, phone, last_login, login_attempts, locked_until, created_at`

func (s *SQLiteStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id uint) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLiteStore) InLoginTx(ctx context.Context, fn func(tx LoginTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&sqliteLoginTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoginLogs(ctx context.Context, email string) ([]models.LoginLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, email, ip_address, user_agent, success, timestamp
		FROM login_logs WHERE email = ? ORDER BY id ASC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.LoginLog
	for rows.Next() {
		var (
			entry  models.LoginLog
			userID sql.NullInt64
			ts     string
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.Email, &entry.IPAddress, &entry.UserAgent, &entry.Success, &ts); err != nil {
			return nil, err
		}
		if userID.Valid {
			id := uint(userID.Int64)
			entry.UserID = &id
		}
		if entry.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	s.opts.stampAlert(alert)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (date, name, situation, message, lat, lng, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alert.Date, alert.Name, alert.Situation, alert.Message, alert.Lat, alert.Lng, formatTime(alert.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	alert.ID = uint(id)
	return nil
}

func (s *SQLiteStore) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name, situation, COALESCE(message, ''), COALESCE(lat, ''), COALESCE(lng, ''), created_at
		FROM alerts ORDER BY id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var (
			a  models.Alert
			ts string
		)
		if err := rows.Scan(&a.ID, &a.Date, &a.Name, &a.Situation, &a.Message, &a.Lat, &a.Lng, &ts); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime(ts); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) ListContacts(ctx context.Context, ownerID uint) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, phone, COALESCE(email, ''), COALESCE(relationship, ''), created_at
		FROM contacts WHERE user_id = ? ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var (
			c  models.Contact
			ts string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.Relationship, &ts); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime(ts); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *SQLiteStore) CreateContact(ctx context.Context, contact *models.Contact) error {
	contact.CreatedAt = s.opts.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (user_id, name, phone, email, relationship, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		contact.UserID, contact.Name, contact.Phone, contact.Email, contact.Relationship, formatTime(contact.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	contact.ID = uint(id)
	return nil
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, contact *models.Contact) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET name = ?, phone = ?, email = ?, relationship = ?
		WHERE id = ? AND user_id = ?`,
		contact.Name, contact.Phone, contact.Email, contact.Relationship, contact.ID, contact.UserID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLiteStore) DeleteContact(ctx context.Context, ownerID, id uint) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteLoginTx struct {
	tx *sql.Tx
}

func (t *sqliteLoginTx) UserForUpdate(ctx context.Context, email string) (*models.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (t *sqliteLoginTx) SetLoginState(ctx context.Context, userID uint, state LoginState) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE users
		SET login_attempts = ?, locked_until = ?, last_login = COALESCE(?, last_login)
		WHERE id = ?`,
		state.FailedAttempts, formatNullTime(state.LockedUntil), formatNullTime(state.LastLogin), userID)
	return err
}

func (t *sqliteLoginTx) AppendLoginLog(ctx context.Context, entry *models.LoginLog) error {
	var userID sql.NullInt64
	if entry.UserID != nil {
		userID = sql.NullInt64{Int64: int64(*entry.UserID), Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO login_logs (user_id, email, ip_address, user_agent, success, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, entry.Email, entry.IPAddress, entry.UserAgent, entry.Success, formatTime(entry.Timestamp))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint(id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		phone       sql.NullString
		lastLogin   sql.NullString
		lockedUntil sql.NullString
		createdAt   string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &phone, &lastLogin, &u.FailedAttempts, &lockedUntil, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Phone = phone.String
	if u.LastLogin, err = parseNullTime(lastLogin); err != nil {
		return nil, err
	}
	if u.LockedUntil, err = parseNullTime(lockedUntil); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Timestamps are stored as UTC RFC 3339 text so they sort and parse the same
// regardless of the server timezone.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
