package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/brforum/forum-backend/internal/domain"
	"github.com/brforum/forum-backend/internal/repository"
	repogomock "github.com/brforum/forum-backend/internal/repository/gomock"
	"github.com/brforum/forum-backend/internal/session"
	"github.com/brforum/forum-backend/internal/storage"
	storagegomock "github.com/brforum/forum-backend/internal/storage/gomock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAccountServiceForTest(t *testing.T) (*AccountService, *repogomock.MockUserRepository, *storagegomock.MockPhotoStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	users := repogomock.NewMockUserRepository(ctrl)
	photos := storagegomock.NewMockPhotoStore(ctrl)
	return NewAccountService(users, photos, discardLogger()), users, photos
}

func TestRegisterSuccessWithoutPhoto(t *testing.T) {
	svc, users, photos := newAccountServiceForTest(t)
	ctx := context.Background()

	photos.EXPECT().Save(ctx, nil).Return(storage.SentinelPhoto, nil)
	users.EXPECT().Insert(ctx, gomock.Any(), "hunter22").
		DoAndReturn(func(_ context.Context, u *domain.User, _ string) error {
			if u.Login != "bob" || u.Name != "Bob" || u.Photo != storage.SentinelPhoto {
				t.Errorf("unexpected user passed to Insert: %+v", u)
			}
			u.ID = 7
			return nil
		})

	res := svc.Register(ctx, "bob", "Bob", "hunter22", nil)
	if !res.OK {
		t.Fatalf("Register failed: %q", res.Message)
	}
	if !strings.Contains(res.Message, "log in") {
		t.Errorf("success message should invite a login, got %q", res.Message)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc, _, _ := newAccountServiceForTest(t)

	res := svc.Register(context.Background(), "bob", "", "hunter22", nil)
	if res.OK {
		t.Fatal("register without a name should fail")
	}
}

func TestRegisterDuplicateLoginRollsBackPhoto(t *testing.T) {
	svc, users, photos := newAccountServiceForTest(t)
	ctx := context.Background()
	upload := &storage.Upload{Filename: "me.png"}

	photos.EXPECT().Save(ctx, upload).Return("abc123.png", nil)
	users.EXPECT().Insert(ctx, gomock.Any(), "pw").Return(repository.ErrDuplicateLogin)
	photos.EXPECT().Remove(ctx, "abc123.png").Return(nil)

	res := svc.Register(ctx, "bob", "Bob", "pw", upload)
	if res.OK {
		t.Fatal("duplicate register should fail")
	}
	if res.Message != repository.ErrDuplicateLogin.Error() {
		t.Errorf("message = %q, want duplicate-login message", res.Message)
	}
}

func TestRegisterInsertFailureNeverRemovesSentinel(t *testing.T) {
	svc, users, photos := newAccountServiceForTest(t)
	ctx := context.Background()

	photos.EXPECT().Save(ctx, nil).Return(storage.SentinelPhoto, nil)
	users.EXPECT().Insert(ctx, gomock.Any(), "pw").Return(errors.New("db down"))
	// no Remove expectation: touching the sentinel would fail the controller

	res := svc.Register(ctx, "bob", "Bob", "pw", nil)
	if res.OK {
		t.Fatal("register should fail when insert fails")
	}
	if res.Message != genericFailureMessage {
		t.Errorf("internal errors must not leak, got %q", res.Message)
	}
}

func TestRegisterRejectedUpload(t *testing.T) {
	svc, _, photos := newAccountServiceForTest(t)
	ctx := context.Background()
	upload := &storage.Upload{Filename: "evil.sh"}

	photos.EXPECT().Save(ctx, upload).Return("", storage.ErrInvalidUpload)

	res := svc.Register(ctx, "bob", "Bob", "pw", upload)
	if res.OK {
		t.Fatal("register with a rejected upload should fail")
	}
	if res.Message != storage.ErrInvalidUpload.Error() {
		t.Errorf("message = %q, want upload validation message", res.Message)
	}
}

func TestLoginProducesIdentity(t *testing.T) {
	svc, users, _ := newAccountServiceForTest(t)
	ctx := context.Background()

	users.EXPECT().Authenticate(ctx, "bob", "pw").
		Return(&domain.User{ID: 7, Login: "bob", Name: "Bob", Photo: "abc.png"}, nil)

	res, identity := svc.Login(ctx, "bob", "pw")
	if !res.OK {
		t.Fatalf("Login failed: %q", res.Message)
	}
	want := session.Identity{UserID: 7, Login: "bob", Name: "Bob", Photo: "abc.png"}
	if identity == nil || *identity != want {
		t.Errorf("identity = %+v, want %+v", identity, want)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	svc, users, _ := newAccountServiceForTest(t)
	ctx := context.Background()

	users.EXPECT().Authenticate(ctx, "bob", "wrong").Return(nil, repository.ErrInvalidCredentials)

	res, identity := svc.Login(ctx, "bob", "wrong")
	if res.OK || identity != nil {
		t.Fatal("failed login must not produce an identity")
	}
	if res.Message != repository.ErrInvalidCredentials.Error() {
		t.Errorf("message = %q, want generic invalid-credentials message", res.Message)
	}
}

func TestUpdateProfileVerifiesCurrentPassword(t *testing.T) {
	svc, users, _ := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob", Name: "Bob", Photo: "abc.png"}

	users.EXPECT().Authenticate(ctx, "bob", "pw").Return(&domain.User{ID: 7, Login: "bob"}, nil)
	users.EXPECT().Update(ctx, gomock.Any(), "pw").
		DoAndReturn(func(_ context.Context, u *domain.User, _ string) error {
			if u.ID != 7 || u.Login != "bobby" || u.Name != "Bobby" || u.Photo != "abc.png" {
				t.Errorf("unexpected user passed to Update: %+v", u)
			}
			return nil
		})

	res, updated := svc.UpdateProfile(ctx, identity, "bobby", "Bobby", "pw")
	if !res.OK {
		t.Fatalf("UpdateProfile failed: %q", res.Message)
	}
	if updated.Login != "bobby" || updated.Name != "Bobby" || updated.Photo != "abc.png" {
		t.Errorf("updated identity = %+v", updated)
	}
}

func TestUpdateProfileWrongPassword(t *testing.T) {
	svc, users, _ := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob"}

	users.EXPECT().Authenticate(ctx, "bob", "wrong").Return(nil, repository.ErrInvalidCredentials)

	res, updated := svc.UpdateProfile(ctx, identity, "bobby", "Bobby", "wrong")
	if res.OK || updated != nil {
		t.Fatal("profile update with a wrong password should fail")
	}
}

func TestUpdateProfileDuplicateLogin(t *testing.T) {
	svc, users, _ := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob", Name: "Bob", Photo: storage.SentinelPhoto}

	users.EXPECT().Authenticate(ctx, "bob", "pw").Return(&domain.User{ID: 7}, nil)
	users.EXPECT().Update(ctx, gomock.Any(), "pw").Return(repository.ErrDuplicateLogin)

	res, updated := svc.UpdateProfile(ctx, identity, "carol", "Bob", "pw")
	if res.OK || updated != nil {
		t.Fatal("renaming onto a taken login should fail")
	}
	if res.Message != repository.ErrDuplicateLogin.Error() {
		t.Errorf("message = %q", res.Message)
	}
}

func TestUpdatePasswordRequiresMatchingConfirmation(t *testing.T) {
	svc, _, _ := newAccountServiceForTest(t)
	identity := &session.Identity{UserID: 7, Login: "bob"}

	res := svc.UpdatePassword(context.Background(), identity, "new", "different")
	if res.OK {
		t.Fatal("mismatched confirmation should fail")
	}

	res = svc.UpdatePassword(context.Background(), identity, "", "")
	if res.OK {
		t.Fatal("empty password should fail")
	}
}

func TestUpdatePasswordKeepsOtherFields(t *testing.T) {
	svc, users, _ := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob", Name: "Bob", Photo: "abc.png"}

	users.EXPECT().Update(ctx, gomock.Any(), "newpw").
		DoAndReturn(func(_ context.Context, u *domain.User, _ string) error {
			if u.Login != "bob" || u.Name != "Bob" || u.Photo != "abc.png" {
				t.Errorf("password change must not alter other fields: %+v", u)
			}
			return nil
		})

	res := svc.UpdatePassword(ctx, identity, "newpw", "newpw")
	if !res.OK {
		t.Fatalf("UpdatePassword failed: %q", res.Message)
	}
}

func TestUpdatePhotoReplacesAndRemovesOld(t *testing.T) {
	svc, users, photos := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob", Name: "Bob", Photo: "old.png"}
	upload := &storage.Upload{Filename: "new.png"}

	users.EXPECT().Authenticate(ctx, "bob", "pw").Return(&domain.User{ID: 7}, nil)
	photos.EXPECT().Save(ctx, upload).Return("new123.png", nil)
	users.EXPECT().Update(ctx, gomock.Any(), "pw").Return(nil)
	photos.EXPECT().Remove(ctx, "old.png").Return(nil)

	res, updated := svc.UpdatePhoto(ctx, identity, upload, "pw")
	if !res.OK {
		t.Fatalf("UpdatePhoto failed: %q", res.Message)
	}
	if updated.Photo != "new123.png" {
		t.Errorf("updated.Photo = %q, want new123.png", updated.Photo)
	}
}

func TestUpdatePhotoKeepsSentinelWhenReplacingDefault(t *testing.T) {
	svc, users, photos := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob", Photo: storage.SentinelPhoto}
	upload := &storage.Upload{Filename: "new.png"}

	users.EXPECT().Authenticate(ctx, "bob", "pw").Return(&domain.User{ID: 7}, nil)
	photos.EXPECT().Save(ctx, upload).Return("new123.png", nil)
	users.EXPECT().Update(ctx, gomock.Any(), "pw").Return(nil)
	// sentinel must never be removed

	res, _ := svc.UpdatePhoto(ctx, identity, upload, "pw")
	if !res.OK {
		t.Fatalf("UpdatePhoto failed: %q", res.Message)
	}
}

func TestUpdatePhotoRollsBackOnUpdateFailure(t *testing.T) {
	svc, users, photos := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob", Photo: "old.png"}
	upload := &storage.Upload{Filename: "new.png"}

	users.EXPECT().Authenticate(ctx, "bob", "pw").Return(&domain.User{ID: 7}, nil)
	photos.EXPECT().Save(ctx, upload).Return("new123.png", nil)
	users.EXPECT().Update(ctx, gomock.Any(), "pw").Return(errors.New("db down"))
	photos.EXPECT().Remove(ctx, "new123.png").Return(nil)
	// old.png stays: the record still points at it

	res, updated := svc.UpdatePhoto(ctx, identity, upload, "pw")
	if res.OK || updated != nil {
		t.Fatal("photo update should fail when the record write fails")
	}
}

func TestDeleteSelfRemovesPhotoAfterRecord(t *testing.T) {
	svc, users, photos := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob", Photo: "abc.png"}

	gomock.InOrder(
		users.EXPECT().Delete(ctx, uint(7)).Return(nil),
		photos.EXPECT().Remove(ctx, "abc.png").Return(nil),
	)

	res := svc.DeleteSelf(ctx, identity)
	if !res.OK {
		t.Fatalf("DeleteSelf failed: %q", res.Message)
	}
}

func TestDeleteSelfKeepsPhotoWhenDeleteFails(t *testing.T) {
	svc, users, _ := newAccountServiceForTest(t)
	ctx := context.Background()
	identity := &session.Identity{UserID: 7, Login: "bob", Photo: "abc.png"}

	users.EXPECT().Delete(ctx, uint(7)).Return(errors.New("db down"))

	res := svc.DeleteSelf(ctx, identity)
	if res.OK {
		t.Fatal("DeleteSelf should fail when the repository fails")
	}
}

func TestDeleteByIDLooksUpTargetPhoto(t *testing.T) {
	svc, users, photos := newAccountServiceForTest(t)
	ctx := context.Background()

	gomock.InOrder(
		users.EXPECT().FindByID(ctx, uint(9)).Return(&domain.User{ID: 9, Photo: "victim.png"}, nil),
		users.EXPECT().Delete(ctx, uint(9)).Return(nil),
		photos.EXPECT().Remove(ctx, "victim.png").Return(nil),
	)

	res := svc.DeleteByID(ctx, 9)
	if !res.OK {
		t.Fatalf("DeleteByID failed: %q", res.Message)
	}
}

func TestDeleteByIDUnknownUser(t *testing.T) {
	svc, users, _ := newAccountServiceForTest(t)
	ctx := context.Background()

	users.EXPECT().FindByID(ctx, uint(9)).Return(nil, repository.ErrUserNotFound)

	res := svc.DeleteByID(ctx, 9)
	if res.OK {
		t.Fatal("deleting an unknown id should fail")
	}
	if res.Message != repository.ErrUserNotFound.Error() {
		t.Errorf("message = %q", res.Message)
	}
}
