package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brforum/forum-backend/internal/domain"
	"github.com/brforum/forum-backend/internal/security"
	"github.com/brforum/forum-backend/internal/storage"

	"gorm.io/gorm"
)

type SeedReport struct {
	CreatedAdmin bool `json:"created_admin"`
	Noop         bool `json:"noop"`
}

// Seed creates the bootstrap administrator account if it does not exist
// yet. Re-running it against a seeded database is a no-op.
func Seed(db *gorm.DB, login, name, password string) (*SeedReport, error) {
	report := &SeedReport{}

	login = strings.TrimSpace(login)
	if login == "" {
		report.Noop = true
		return report, nil
	}
	if password == "" {
		return nil, errors.New("bootstrap admin password is required")
	}

	var existing domain.User
	err := db.Where("login = ?", login).First(&existing).Error
	switch {
	case err == nil:
		report.Noop = true
		return report, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash bootstrap admin password: %w", err)
	}

	admin := domain.User{
		Login:        login,
		Name:         name,
		PasswordHash: hash,
		Photo:        storage.SentinelPhoto,
	}
	if err := db.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			report.Noop = true
			return report, nil
		}
		return nil, err
	}

	report.CreatedAdmin = true
	return report, nil
}
