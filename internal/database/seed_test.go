package database

import (
	"testing"

	"github.com/brforum/forum-backend/internal/domain"
	"github.com/brforum/forum-backend/internal/security"
	"github.com/brforum/forum-backend/internal/storage"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSeedDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSeedCreatesAdminOnce(t *testing.T) {
	db := newSeedDBForTest(t)

	report, err := Seed(db, "admin", "Administrator", "s3cret")
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !report.CreatedAdmin {
		t.Error("first seed should create the admin")
	}

	var u domain.User
	if err := db.Where("login = ?", "admin").First(&u).Error; err != nil {
		t.Fatalf("lookup admin: %v", err)
	}
	if u.Photo != storage.SentinelPhoto {
		t.Errorf("Photo = %q, want %q", u.Photo, storage.SentinelPhoto)
	}
	ok, err := security.VerifyPassword(u.PasswordHash, "s3cret")
	if err != nil || !ok {
		t.Errorf("admin password should verify, ok=%v err=%v", ok, err)
	}

	report, err = Seed(db, "admin", "Administrator", "s3cret")
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if !report.Noop {
		t.Error("second seed should be a no-op")
	}

	var count int64
	if err := db.Model(&domain.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestSeedWithoutLoginIsNoop(t *testing.T) {
	db := newSeedDBForTest(t)

	report, err := Seed(db, "  ", "Administrator", "s3cret")
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !report.Noop {
		t.Error("seed without a login should be a no-op")
	}
}

func TestSeedRequiresPassword(t *testing.T) {
	db := newSeedDBForTest(t)

	if _, err := Seed(db, "admin", "Administrator", ""); err == nil {
		t.Fatal("expected error for empty bootstrap admin password")
	}
}
