package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "dmbox/internal/domain/auth"
	domainuser "dmbox/internal/domain/user"
)

func TestUserRepositorySaveAndLookup(t *testing.T) {
	t.Parallel()
	r := NewUserRepository()
	ctx := context.Background()

	u, err := domainuser.New("alice", "hash", time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Save(ctx, u); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := r.ByID(ctx, "alice")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if got.ID != "alice" || got.PasswordHash != "hash" {
		t.Errorf("ByID = %+v", got)
	}

	if err := r.Save(ctx, u); !errors.Is(err, domainuser.ErrUsernameTaken) {
		t.Errorf("duplicate Save = %v, want ErrUsernameTaken", err)
	}
	if _, err := r.ByID(ctx, "nobody"); !errors.Is(err, domainuser.ErrNotFound) {
		t.Errorf("ByID(nobody) = %v, want ErrNotFound", err)
	}
	ok, err := r.Exists(ctx, "alice")
	if err != nil || !ok {
		t.Errorf("Exists(alice) = %v, %v", ok, err)
	}
}

func newSession(t *testing.T, token, userID string, ttl time.Duration) *domainauth.Session {
	t.Helper()
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: domainuser.ID(userID),
		TTL:    ttl,
		Now:    time.Now(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}

func TestSessionStoreLifecycle(t *testing.T) {
	t.Parallel()
	s := NewSessionStore()
	ctx := context.Background()

	if err := s.Save(ctx, newSession(t, "tok1", "alice", time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(ctx, "tok1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", got.UserID)
	}

	if err := s.Delete(ctx, "tok1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "tok1"); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Errorf("Get after delete = %v, want ErrSessionNotFound", err)
	}
	// deleting an unknown token is a no-op
	if err := s.Delete(ctx, "tok1"); err != nil {
		t.Errorf("second Delete = %v", err)
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	t.Parallel()
	s := NewSessionStore()
	ctx := context.Background()

	if err := s.Save(ctx, newSession(t, "tok1", "alice", time.Nanosecond)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := s.Get(ctx, "tok1"); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Errorf("expired Get = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStoreDeleteByUser(t *testing.T) {
	t.Parallel()
	s := NewSessionStore()
	ctx := context.Background()

	for _, token := range []string{"a1", "a2"} {
		if err := s.Save(ctx, newSession(t, token, "alice", time.Hour)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := s.Save(ctx, newSession(t, "b1", "bob", time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.DeleteByUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteByUser: %v", err)
	}
	for _, token := range []string{"a1", "a2"} {
		if _, err := s.Get(ctx, domainauth.Token(token)); !errors.Is(err, domainauth.ErrSessionNotFound) {
			t.Errorf("Get(%s) = %v, want ErrSessionNotFound", token, err)
		}
	}
	if _, err := s.Get(ctx, "b1"); err != nil {
		t.Errorf("bob's session must survive: %v", err)
	}
}
