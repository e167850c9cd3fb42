package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brforum/forum-backend/internal/domain"
)

func TestUserRepositoryInsertAndAuthenticate(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	user := &domain.User{Login: "alice", Name: "Alice", Photo: "default.png"}
	if err := repo.Insert(ctx, user, "Secret123!"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected store-assigned id")
	}
	if user.PasswordHash != "" {
		t.Fatal("insert must not leave the hash on the record")
	}

	got, err := repo.Authenticate(ctx, "alice", "Secret123!")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID || got.Login != "alice" || got.Name != "Alice" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.PasswordHash != "" {
		t.Fatal("authenticate must clear the credential")
	}
}

func TestUserRepositoryAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	if err := repo.Insert(ctx, &domain.User{Login: "bob", Name: "Bob"}, "Secret123!"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := repo.Authenticate(ctx, "bob", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := repo.Authenticate(ctx, "nobody", "Secret123!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown login: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserRepositoryInsertDuplicateLogin(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	if err := repo.Insert(ctx, &domain.User{Login: "alice", Name: "Alice"}, "Secret123!"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := repo.Insert(ctx, &domain.User{Login: "alice", Name: "Other Alice"}, "Another1!")
	if !errors.Is(err, ErrDuplicateLogin) {
		t.Fatalf("expected ErrDuplicateLogin, got %v", err)
	}

	var count int64
	if err := db.Model(&domain.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("duplicate insert must not add a row, have %d", count)
	}
}

func TestUserRepositoryUpdate(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	user := &domain.User{Login: "bob", Name: "Bob"}
	if err := repo.Insert(ctx, user, "Secret123!"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	user.Login = "bobby"
	user.Name = "Bobby"
	if err := repo.Update(ctx, user, "Secret123!"); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := repo.Authenticate(ctx, "bob", "Secret123!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old login must be gone, got %v", err)
	}
	got, err := repo.Authenticate(ctx, "bobby", "Secret123!")
	if err != nil {
		t.Fatalf("authenticate after rename: %v", err)
	}
	if got.Name != "Bobby" {
		t.Fatalf("expected updated name, got %q", got.Name)
	}
}

func TestUserRepositoryUpdateLoginCollision(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	if err := repo.Insert(ctx, &domain.User{Login: "alice", Name: "Alice"}, "Secret123!"); err != nil {
		t.Fatalf("insert alice: %v", err)
	}
	bob := &domain.User{Login: "bob", Name: "Bob"}
	if err := repo.Insert(ctx, bob, "Secret123!"); err != nil {
		t.Fatalf("insert bob: %v", err)
	}

	bob.Login = "alice"
	if err := repo.Update(ctx, bob, "Secret123!"); !errors.Is(err, ErrDuplicateLogin) {
		t.Fatalf("expected ErrDuplicateLogin, got %v", err)
	}

	// Keeping one's own login is not a collision.
	bob.Login = "bob"
	bob.Name = "Robert"
	if err := repo.Update(ctx, bob, "Secret123!"); err != nil {
		t.Fatalf("update keeping own login: %v", err)
	}
}

func TestUserRepositoryUpdateAlwaysRehashes(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	user := &domain.User{Login: "carol", Name: "Carol"}
	if err := repo.Insert(ctx, user, "Secret123!"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Update(ctx, user, "NewSecret456!"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := repo.Authenticate(ctx, "carol", "Secret123!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must no longer verify, got %v", err)
	}
	if _, err := repo.Authenticate(ctx, "carol", "NewSecret456!"); err != nil {
		t.Fatalf("new password must verify: %v", err)
	}
}

func TestUserRepositoryDeleteAndLookups(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Login: "dave", Name: "Dave"}
	if err := repo.Insert(ctx, user, "Secret123!"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if got.PasswordHash != "" {
		t.Fatal("find by id must not expose the hash")
	}

	post := &domain.Post{UserID: user.ID, Message: "hello", PostedAt: time.Now(), EditedAt: time.Now()}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	author, err := repo.FindByPostID(ctx, post.ID)
	if err != nil {
		t.Fatalf("find by post id: %v", err)
	}
	if author.ID != user.ID {
		t.Fatalf("expected author %d, got %d", user.ID, author.ID)
	}
	if _, err := repo.FindByPostID(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for missing post, got %v", err)
	}

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	// Deleting an absent id is a silent no-op.
	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
