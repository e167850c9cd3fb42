package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/brforum/forum-backend/internal/domain"
	"github.com/brforum/forum-backend/internal/observability"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	Update(ctx context.Context, id uint, message string, editedAt time.Time) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*domain.Post, error)
	ListAll(ctx context.Context) ([]domain.PostWithAuthor, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.Post, error)
	SearchByMessage(ctx context.Context, query string) ([]domain.PostWithAuthor, error)
}

type GormPostRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &GormPostRepository{db: db} }

func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "post", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "post", "create", "success")
	return nil
}

func (r *GormPostRepository) Update(ctx context.Context, id uint, message string, editedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", id).
		Updates(map[string]any{"message": message, "edited_at": editedAt})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "post", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "post", "update", "not_found")
		return ErrPostNotFound
	}
	observability.RecordRepositoryOperation(ctx, "post", "update", "success")
	return nil
}

func (r *GormPostRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Post{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "post", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "post", "delete", "not_found")
		return ErrPostNotFound
	}
	observability.RecordRepositoryOperation(ctx, "post", "delete", "success")
	return nil
}

func (r *GormPostRepository) FindByID(ctx context.Context, id uint) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "post", "find_by_id", "not_found")
			return nil, ErrPostNotFound
		}
		observability.RecordRepositoryOperation(ctx, "post", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "post", "find_by_id", "success")
	return &post, nil
}

func (r *GormPostRepository) ListAll(ctx context.Context) ([]domain.PostWithAuthor, error) {
	var rows []domain.PostWithAuthor
	err := r.db.WithContext(ctx).Model(&domain.Post{}).
		Select("posts.id, posts.message, posts.posted_at, posts.edited_at, users.name AS author_name").
		Joins("JOIN users ON users.id = posts.user_id").
		Order("posts.id ASC").
		Scan(&rows).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "post", "list_all", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "post", "list_all", "success")
	return rows, nil
}

func (r *GormPostRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Post, error) {
	var posts []domain.Post
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&posts).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "post", "list_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "post", "list_by_user", "success")
	return posts, nil
}

func (r *GormPostRepository) SearchByMessage(ctx context.Context, query string) ([]domain.PostWithAuthor, error) {
	var rows []domain.PostWithAuthor
	err := r.db.WithContext(ctx).Model(&domain.Post{}).
		Select("posts.id, posts.message, posts.posted_at, posts.edited_at, users.name AS author_name").
		Joins("JOIN users ON users.id = posts.user_id").
		Where("posts.message LIKE ?", "%"+query+"%").
		Order("posts.id DESC").
		Scan(&rows).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "post", "search", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "post", "search", "success")
	return rows, nil
}
