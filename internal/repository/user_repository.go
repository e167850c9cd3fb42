package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/brforum/forum-backend/internal/domain"
	"github.com/brforum/forum-backend/internal/observability"
	"github.com/brforum/forum-backend/internal/security"
)

var (
	// ErrDuplicateLogin surfaces the storage-level unique constraint on login.
	// The constraint is the only uniqueness check; there is no pre-read.
	ErrDuplicateLogin = errors.New("this login is already in use")

	// ErrInvalidCredentials covers both unknown login and wrong password so
	// callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid login or password")

	ErrUserNotFound = errors.New("user not found")
)

// UserRepository owns the durable identity record. Write operations take the
// plaintext credential separately and always re-hash it; read operations never
// return the stored hash.
type UserRepository interface {
	Insert(ctx context.Context, user *domain.User, password string) error
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User, password string) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByPostID(ctx context.Context, postID uint) (*domain.User, error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) Insert(ctx context.Context, user *domain.User, password string) error {
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if user.Photo == "" {
		user.Photo = "default.png"
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		user.PasswordHash = ""
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(ctx, "user", "insert", "duplicate")
			return ErrDuplicateLogin
		}
		observability.RecordRepositoryOperation(ctx, "user", "insert", "error")
		return err
	}
	user.PasswordHash = ""
	observability.RecordRepositoryOperation(ctx, "user", "insert", "success")
	return nil
}

func (r *GormUserRepository) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("login = ?", login).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", "authenticate", "failure")
			return nil, ErrInvalidCredentials
		}
		observability.RecordRepositoryOperation(ctx, "user", "authenticate", "error")
		return nil, err
	}
	ok, err := security.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "authenticate", "error")
		return nil, err
	}
	if !ok {
		observability.RecordRepositoryOperation(ctx, "user", "authenticate", "failure")
		return nil, ErrInvalidCredentials
	}
	user.PasswordHash = ""
	observability.RecordRepositoryOperation(ctx, "user", "authenticate", "success")
	return &user, nil
}

func (r *GormUserRepository) Update(ctx context.Context, user *domain.User, password string) error {
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"login":         user.Login,
		"name":          user.Name,
		"password_hash": hash,
		"photo":         user.Photo,
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(ctx, "user", "update", "duplicate")
			return ErrDuplicateLogin
		}
		observability.RecordRepositoryOperation(ctx, "user", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "user", "update", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "update", "success")
	return nil
}

// Delete removes the row. Deleting an absent id is a silent no-op.
func (r *GormUserRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.User{}, id).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "delete", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "delete", "success")
	return nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", "find_by_id", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", "find_by_id", "error")
		return nil, err
	}
	user.PasswordHash = ""
	observability.RecordRepositoryOperation(ctx, "user", "find_by_id", "success")
	return &user, nil
}

// FindByPostID resolves a post's author by joining through the posts table.
func (r *GormUserRepository) FindByPostID(ctx context.Context, postID uint) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Joins("JOIN posts ON posts.user_id = users.id").
		Where("posts.id = ?", postID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", "find_by_post_id", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", "find_by_post_id", "error")
		return nil, err
	}
	user.PasswordHash = ""
	observability.RecordRepositoryOperation(ctx, "user", "find_by_post_id", "success")
	return &user, nil
}
