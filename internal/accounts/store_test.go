package accounts

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hushd-dev/hushd/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		t.Fatalf("failed to enable WAL: %v", err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
		t.Fatalf("failed to set busy timeout: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func TestCreateAndFind(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, "a@x.com", "some-hash")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("Create() returned account without ID")
	}

	byEmail, err := store.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("FindByEmail() ID = %v, want %v", byEmail.ID, created.ID)
	}

	byID, err := store.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID.Email != "a@x.com" {
		t.Errorf("FindByID() email = %v, want a@x.com", byID.Email)
	}
}

func TestFindMissing(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.FindByEmail(ctx, "nobody@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByEmail() error = %v, want ErrNotFound", err)
	}
	if _, err := store.FindByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID() error = %v, want ErrNotFound", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	original, err := store.Create(ctx, "a@x.com", "original-hash")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := store.Create(ctx, "a@x.com", "other-hash"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("second Create() error = %v, want ErrDuplicateEmail", err)
	}

	// The losing insert must not have touched the existing row
	found, err := store.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if found.PasswordHash != "original-hash" {
		t.Errorf("password hash changed to %q after duplicate insert", found.PasswordHash)
	}
	if found.ID != original.ID {
		t.Errorf("account ID changed after duplicate insert")
	}
}

func TestConcurrentCreate(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	const attempts = 8
	results := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.Create(ctx, "b@x.com", "hash")
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrDuplicateEmail):
			conflicted++
		default:
			t.Errorf("unexpected error from concurrent Create(): %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("concurrent Create() succeeded %d times, want exactly 1", succeeded)
	}
	if conflicted != attempts-1 {
		t.Errorf("concurrent Create() conflicted %d times, want %d", conflicted, attempts-1)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("account count = %d after concurrent registration, want 1", count)
	}
}

func TestUpdateSecret(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	user, err := store.Create(ctx, "a@x.com", "hash")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.UpdateSecret(ctx, user.ID, "my secret"); err != nil {
		t.Fatalf("UpdateSecret() error = %v", err)
	}

	found, err := store.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.Secret != "my secret" {
		t.Errorf("secret = %q, want %q", found.Secret, "my secret")
	}

	if err := store.UpdateSecret(ctx, "missing-id", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateSecret() for missing account error = %v, want ErrNotFound", err)
	}
}
