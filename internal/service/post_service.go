package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/brforum/forum-backend/internal/domain"
	"github.com/brforum/forum-backend/internal/repository"
)

var ErrNotPostAuthor = errors.New("you can only change your own posts")

type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, users: users, logger: logger}
}

func (s *PostService) Create(ctx context.Context, authorID uint, message string) (Result, *domain.Post) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{Message: "a message is required"}, nil
	}

	post := &domain.Post{UserID: authorID, Message: message, PostedAt: time.Now().UTC()}
	if err := s.posts.Create(ctx, post); err != nil {
		return s.postFailure(ctx, "create post", err), nil
	}
	return Result{OK: true, Message: "post published"}, post
}

// Edit replaces the message and stamps the edit time. Only the author may
// edit, so the post is loaded first to check ownership.
func (s *PostService) Edit(ctx context.Context, authorID, postID uint, message string) Result {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{Message: "a message is required"}
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return s.postFailure(ctx, "load post", err)
	}
	if post.UserID != authorID {
		return Result{Message: ErrNotPostAuthor.Error()}
	}

	if err := s.posts.Update(ctx, postID, message, time.Now().UTC()); err != nil {
		return s.postFailure(ctx, "update post", err)
	}
	return Result{OK: true, Message: "post updated"}
}

func (s *PostService) Delete(ctx context.Context, authorID, postID uint) Result {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return s.postFailure(ctx, "load post", err)
	}
	if post.UserID != authorID {
		return Result{Message: ErrNotPostAuthor.Error()}
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return s.postFailure(ctx, "delete post", err)
	}
	return Result{OK: true, Message: "post deleted"}
}

func (s *PostService) ListAll(ctx context.Context) ([]domain.PostWithAuthor, error) {
	return s.posts.ListAll(ctx)
}

func (s *PostService) ListByUser(ctx context.Context, userID uint) ([]domain.Post, error) {
	return s.posts.ListByUser(ctx, userID)
}

// Search returns the full listing when the query is blank.
func (s *PostService) Search(ctx context.Context, query string) ([]domain.PostWithAuthor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.posts.ListAll(ctx)
	}
	return s.posts.SearchByMessage(ctx, query)
}

// Author resolves who wrote a post, without exposing the stored hash.
func (s *PostService) Author(ctx context.Context, postID uint) (*domain.User, error) {
	return s.users.FindByPostID(ctx, postID)
}

func (s *PostService) postFailure(ctx context.Context, op string, err error) Result {
	if errors.Is(err, repository.ErrPostNotFound) {
		return Result{Message: err.Error()}
	}
	s.logger.ErrorContext(ctx, "post flow failed", "op", op, "error", err)
	return Result{Message: genericFailureMessage}
}
