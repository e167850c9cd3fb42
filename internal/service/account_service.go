// Package service orchestrates repositories, photo storage and sessions into
// the account and post flows exposed over HTTP.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brforum/forum-backend/internal/domain"
	"github.com/brforum/forum-backend/internal/observability"
	"github.com/brforum/forum-backend/internal/repository"
	"github.com/brforum/forum-backend/internal/session"
	"github.com/brforum/forum-backend/internal/storage"
)

// Result is what every account flow hands back to the transport layer. The
// message is safe to show to the end user as-is; internal errors are logged
// here and collapsed into a generic message.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

const genericFailureMessage = "something went wrong, please try again"

type AccountService struct {
	users  repository.UserRepository
	photos storage.PhotoStore
	logger *slog.Logger
}

func NewAccountService(users repository.UserRepository, photos storage.PhotoStore, logger *slog.Logger) *AccountService {
	return &AccountService{users: users, photos: photos, logger: logger}
}

// Register stores the uploaded photo first and only then inserts the record.
// If the insert fails the just-stored file is orphaned, so it is removed
// before the result is returned.
func (s *AccountService) Register(ctx context.Context, login, name, password string, photo *storage.Upload) Result {
	start := time.Now()

	if login == "" || name == "" || password == "" {
		observability.RecordAccountFlow(ctx, "register", "invalid")
		return Result{Message: "login, name and password are required"}
	}

	photoName, err := s.photos.Save(ctx, photo)
	if err != nil {
		observability.RecordAccountFlow(ctx, "register", "upload_rejected")
		return s.failure(ctx, "register", "save photo", err)
	}

	user := &domain.User{Login: login, Name: name, Photo: photoName}
	if err := s.users.Insert(ctx, user, password); err != nil {
		s.compensatePhoto(ctx, "register", photoName)
		observability.RecordAccountFlow(ctx, "register", "failure")
		return s.failure(ctx, "register", "insert user", err)
	}

	observability.RecordAccountFlow(ctx, "register", "success")
	observability.RecordAccountFlowDuration(ctx, "register", "success", time.Since(start))
	return Result{OK: true, Message: "account created, you can now log in"}
}

// Login authenticates and, on success, returns the identity to store in the
// session. Failures are indistinguishable between unknown login and wrong
// password.
func (s *AccountService) Login(ctx context.Context, login, password string) (Result, *session.Identity) {
	start := time.Now()

	user, err := s.users.Authenticate(ctx, login, password)
	if err != nil {
		observability.RecordAccountFlow(ctx, "login", "failure")
		return s.failure(ctx, "login", "authenticate", err), nil
	}

	observability.RecordAccountFlow(ctx, "login", "success")
	observability.RecordAccountFlowDuration(ctx, "login", "success", time.Since(start))
	return Result{OK: true, Message: "welcome back, " + user.Name},
		&session.Identity{UserID: user.ID, Login: user.Login, Name: user.Name, Photo: user.Photo}
}

// UpdateProfile changes login and display name. The current password must be
// re-submitted: it is verified against the stored hash and then flows into the
// update, which always re-hashes.
func (s *AccountService) UpdateProfile(ctx context.Context, identity *session.Identity, newLogin, newName, password string) (Result, *session.Identity) {
	if newLogin == "" || newName == "" {
		observability.RecordAccountFlow(ctx, "edit_profile", "invalid")
		return Result{Message: "login and name are required"}, nil
	}

	if _, err := s.users.Authenticate(ctx, identity.Login, password); err != nil {
		observability.RecordAccountFlow(ctx, "edit_profile", "failure")
		return s.failure(ctx, "edit_profile", "verify password", err), nil
	}

	user := &domain.User{ID: identity.UserID, Login: newLogin, Name: newName, Photo: identity.Photo}
	if err := s.users.Update(ctx, user, password); err != nil {
		observability.RecordAccountFlow(ctx, "edit_profile", "failure")
		return s.failure(ctx, "edit_profile", "update user", err), nil
	}

	observability.RecordAccountFlow(ctx, "edit_profile", "success")
	updated := *identity
	updated.Login = newLogin
	updated.Name = newName
	return Result{OK: true, Message: "profile updated"}, &updated
}

// UpdatePassword requires the new credential to be typed twice. There is no
// current-password gate on this flow; possession of the session is the proof.
func (s *AccountService) UpdatePassword(ctx context.Context, identity *session.Identity, newPassword, confirm string) Result {
	if newPassword == "" {
		observability.RecordAccountFlow(ctx, "edit_credential", "invalid")
		return Result{Message: "password is required"}
	}
	if newPassword != confirm {
		observability.RecordAccountFlow(ctx, "edit_credential", "invalid")
		return Result{Message: "passwords do not match"}
	}

	user := &domain.User{ID: identity.UserID, Login: identity.Login, Name: identity.Name, Photo: identity.Photo}
	if err := s.users.Update(ctx, user, newPassword); err != nil {
		observability.RecordAccountFlow(ctx, "edit_credential", "failure")
		return s.failure(ctx, "edit_credential", "update user", err)
	}

	observability.RecordAccountFlow(ctx, "edit_credential", "success")
	return Result{OK: true, Message: "password changed"}
}

// UpdatePhoto stores the replacement first, points the record at it, and only
// after the record moved deletes the old file. A failed update rolls the new
// file back; the old photo survives unless it is the sentinel.
func (s *AccountService) UpdatePhoto(ctx context.Context, identity *session.Identity, photo *storage.Upload, password string) (Result, *session.Identity) {
	if photo == nil {
		observability.RecordAccountFlow(ctx, "edit_photo", "invalid")
		return Result{Message: "a photo file is required"}, nil
	}

	if _, err := s.users.Authenticate(ctx, identity.Login, password); err != nil {
		observability.RecordAccountFlow(ctx, "edit_photo", "failure")
		return s.failure(ctx, "edit_photo", "verify password", err), nil
	}

	newName, err := s.photos.Save(ctx, photo)
	if err != nil {
		observability.RecordAccountFlow(ctx, "edit_photo", "upload_rejected")
		return s.failure(ctx, "edit_photo", "save photo", err), nil
	}

	user := &domain.User{ID: identity.UserID, Login: identity.Login, Name: identity.Name, Photo: newName}
	if err := s.users.Update(ctx, user, password); err != nil {
		s.compensatePhoto(ctx, "edit_photo", newName)
		observability.RecordAccountFlow(ctx, "edit_photo", "failure")
		return s.failure(ctx, "edit_photo", "update user", err), nil
	}

	s.removeIfCustom(ctx, "edit_photo", identity.Photo)

	observability.RecordAccountFlow(ctx, "edit_photo", "success")
	updated := *identity
	updated.Photo = newName
	return Result{OK: true, Message: "photo updated"}, &updated
}

// DeleteSelf removes the caller's own record and then its photo. The photo is
// only touched once the row is gone, so a failed delete never strands the
// account without its image.
func (s *AccountService) DeleteSelf(ctx context.Context, identity *session.Identity) Result {
	if err := s.users.Delete(ctx, identity.UserID); err != nil {
		observability.RecordAccountFlow(ctx, "delete", "failure")
		return s.failure(ctx, "delete", "delete user", err)
	}
	s.removeIfCustom(ctx, "delete", identity.Photo)
	observability.RecordAccountFlow(ctx, "delete", "success")
	return Result{OK: true, Message: "account deleted"}
}

// DeleteByID is the administrative variant: the target is looked up first so
// its photo name is known before the row disappears.
func (s *AccountService) DeleteByID(ctx context.Context, id uint) Result {
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		observability.RecordAccountFlow(ctx, "admin_delete", "failure")
		return s.failure(ctx, "admin_delete", "find user", err)
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		observability.RecordAccountFlow(ctx, "admin_delete", "failure")
		return s.failure(ctx, "admin_delete", "delete user", err)
	}
	s.removeIfCustom(ctx, "admin_delete", target.Photo)
	observability.RecordAccountFlow(ctx, "admin_delete", "success")
	return Result{OK: true, Message: "account deleted"}
}

// compensatePhoto removes a file that was stored for a flow whose record write
// failed. Best effort: a failed rollback is logged, not surfaced.
func (s *AccountService) compensatePhoto(ctx context.Context, flow, name string) {
	if name == storage.SentinelPhoto {
		return
	}
	observability.RecordPhotoRollback(ctx, flow)
	if err := s.photos.Remove(ctx, name); err != nil {
		s.logger.ErrorContext(ctx, "photo rollback failed", "flow", flow, "photo", name, "error", err)
	}
}

func (s *AccountService) removeIfCustom(ctx context.Context, flow, name string) {
	if name == storage.SentinelPhoto {
		return
	}
	if err := s.photos.Remove(ctx, name); err != nil {
		s.logger.ErrorContext(ctx, "removing replaced photo failed", "flow", flow, "photo", name, "error", err)
	}
}

// failure maps an error to a user-facing Result. Known domain errors keep
// their message; anything else is logged and replaced with a generic one.
func (s *AccountService) failure(ctx context.Context, flow, op string, err error) Result {
	switch {
	case errors.Is(err, repository.ErrDuplicateLogin),
		errors.Is(err, repository.ErrInvalidCredentials),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, storage.ErrInvalidUpload):
		return Result{Message: err.Error()}
	default:
		s.logger.ErrorContext(ctx, "account flow failed", "flow", flow, "op", op, "error", err)
		return Result{Message: genericFailureMessage}
	}
}
