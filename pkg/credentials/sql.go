package credentials

import (
	"context"
	"time"

	"github.com/ferrolane/socks5d/pkg/crypto"
	"gorm.io/gorm"
)

// credentialRow is the GORM model backing SQLStore's "credentials"
// table. Unlike FileStore, passwords at rest are Argon2id hashes —
// since this backend is a supplemental alternate to the spec's CSV
// store rather than a reimplementation of it, it is free to apply the
// stronger-at-rest practice the teacher's pkg/crypto already provides.
type credentialRow struct {
	Name      string `gorm:"primaryKey;column:name"`
	PassHash  string `gorm:"column:pass_hash"`
	CreatedAt time.Time
}

// TableName pins the GORM table name regardless of pluralization rules.
func (credentialRow) TableName() string { return "credentials" }

// SQLStore is a supplemental Store backend reading credentials from a
// Postgres table instead of a CSV file (see design notes on the
// original's "clients.tinydb" vs "users.csv" split). It implements the
// same Store interface as FileStore, so the authenticator does not
// need to know which backend answered Lookup.
type SQLStore struct {
	db     *gorm.DB
	hasher *crypto.PasswordHasher
}

// NewSQLStore wraps an already-connected *gorm.DB.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db, hasher: crypto.NewPasswordHasher()}
}

// Migrate ensures the credentials table exists.
func (s *SQLStore) Migrate() error {
	return s.db.AutoMigrate(&credentialRow{})
}

// Lookup reports whether (name, pass) is a valid credential, verifying
// pass against the stored Argon2id hash. Any database error is treated
// as "no such credential" — a transient DB outage denies USER_PASS
// logins rather than panicking the connection driver.
func (s *SQLStore) Lookup(ctx context.Context, name, pass string) bool {
	if s.db == nil {
		return false
	}

	var row credentialRow
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		return false
	}

	ok, err := s.hasher.VerifyPassword(pass, row.PassHash)
	if err != nil {
		return false
	}
	return ok
}

// Put inserts or updates a credential, hashing pass with Argon2id
// before it is stored. Used by operator tooling, not by the proxy's
// connection driver.
func (s *SQLStore) Put(ctx context.Context, name, pass string) error {
	hash, err := s.hasher.HashPassword(pass)
	if err != nil {
		return err
	}
	row := credentialRow{Name: name, PassHash: hash, CreatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Save(&row).Error
}
