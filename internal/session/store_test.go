package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreForTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestStoreIdentityLifecycle(t *testing.T) {
	store, _ := newStoreForTest(t)
	ctx := context.Background()
	sid := store.NewID()

	got, err := store.Identity(ctx, sid)
	if err != nil {
		t.Fatalf("identity on fresh session: %v", err)
	}
	if got != nil {
		t.Fatalf("fresh session must be anonymous, got %+v", got)
	}

	want := Identity{UserID: 7, Login: "alice", Name: "Alice", Photo: "default.png"}
	if err := store.SetIdentity(ctx, sid, want); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	got, err = store.Identity(ctx, sid)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if got == nil || *got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if err := store.Destroy(ctx, sid); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	got, err = store.Identity(ctx, sid)
	if err != nil {
		t.Fatalf("identity after destroy: %v", err)
	}
	if got != nil {
		t.Fatalf("expected anonymous session after destroy, got %+v", got)
	}
}

func TestStoreFlashIsReadOnce(t *testing.T) {
	store, _ := newStoreForTest(t)
	ctx := context.Background()
	sid := store.NewID()

	if err := store.SetFlash(ctx, sid, Flash{OK: false, Message: "invalid login or password"}); err != nil {
		t.Fatalf("set flash: %v", err)
	}
	flash, err := store.PopFlash(ctx, sid)
	if err != nil {
		t.Fatalf("pop flash: %v", err)
	}
	if flash == nil || flash.OK || flash.Message != "invalid login or password" {
		t.Fatalf("unexpected flash: %+v", flash)
	}

	flash, err = store.PopFlash(ctx, sid)
	if err != nil {
		t.Fatalf("second pop: %v", err)
	}
	if flash != nil {
		t.Fatalf("flash must be consumed on first read, got %+v", flash)
	}
}

func TestStoreSessionsExpire(t *testing.T) {
	store, mr := newStoreForTest(t)
	ctx := context.Background()
	sid := store.NewID()

	if err := store.SetIdentity(ctx, sid, Identity{UserID: 1, Login: "bob"}); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	got, err := store.Identity(ctx, sid)
	if err != nil {
		t.Fatalf("identity after expiry: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired session to be anonymous, got %+v", got)
	}
}
