package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// FederatedSentinel is stored in place of a password hash for accounts
// created through Google sign-in. Such accounts have no local password and
// can never authenticate through the password path.
const FederatedSentinel = "google-oauth"

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents an account, keyed by unique email regardless of which
// strategy (local password or Google) created it.
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Secret       string    `json:"secret"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// HasLocalCredential reports whether the account has a password set,
// as opposed to being a federated-only (Google) account.
func (u *User) HasLocalCredential() bool {
	return u.PasswordHash != FederatedSentinel
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}
