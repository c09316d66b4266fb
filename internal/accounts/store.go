package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/hushd-dev/hushd/internal/models"
)

var (
	// ErrNotFound is returned when no account exists for a lookup key
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateEmail is returned when an insert collides with an
	// existing account. The unique index on email makes this reliable even
	// for concurrent inserts; there is no check-then-insert window.
	ErrDuplicateEmail = errors.New("account with this email already exists")

	// ErrUnavailable is returned when the backing store cannot be reached
	// or fails for reasons unrelated to the request itself
	ErrUnavailable = errors.New("account store unavailable")
)

// Store owns Account records. Strategies read and insert through it; the
// secret belongs to the secrets handlers but lives on the same row.
type Store struct {
	db *gorm.DB
}

// NewStore creates an account store on the given database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindByEmail looks up an account by its unique email
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &user, nil
}

// FindByID looks up an account by its ULID primary key
func (s *Store) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &user, nil
}

// Create inserts a new account. A racing insert with the same email loses
// against the unique index and is reported as ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return user, nil
}

// UpdateSecret sets the secret for an account
func (s *Store) UpdateSecret(ctx context.Context, id, secret string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("secret", secret)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of accounts
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// isDuplicateKey recognizes unique-constraint violations. GORM translates
// them on drivers that support it; the sqlite message check covers the rest.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
