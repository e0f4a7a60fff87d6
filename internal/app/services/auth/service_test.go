package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainauth "dmbox/internal/domain/auth"
	domainuser "dmbox/internal/domain/user"
	"dmbox/internal/infra/storage/memory"
)

// plainHasher keeps tests fast; production wiring uses bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type seqTokens struct{ n int }

func (g *seqTokens) NewToken() (string, error) {
	g.n++
	return fmt.Sprintf("token-%d", g.n), nil
}

func newAuthService() *Service {
	return &Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  plainHasher{},
		Tokens:     &seqTokens{},
		SessionTTL: time.Hour,
	}
}

func TestRegisterIssuesSession(t *testing.T) {
	t.Parallel()
	svc := newAuthService()
	ctx := context.Background()

	res, err := svc.Register(ctx, Credentials{Username: "alice", Password: "sup3rsecret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a session token")
	}
	if res.User.PasswordHash == "sup3rsecret" {
		t.Error("password stored without hashing")
	}

	user, err := svc.ResolveToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if user.ID != "alice" {
		t.Errorf("resolved user = %q, want alice", user.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	svc := newAuthService()
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"empty username", "", "sup3rsecret", domainuser.ErrIDRequired},
		{"whitespace username", "   ", "sup3rsecret", domainuser.ErrIDRequired},
		{"short password", "alice", "short", ErrPasswordTooShort},
		{"invalid id characters", "al ice", "sup3rsecret", domainuser.ErrInvalidID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, Credentials{Username: tc.username, Password: tc.password})
			if !errors.Is(err, tc.want) {
				t.Errorf("Register = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	t.Parallel()
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Username: "alice", Password: "sup3rsecret"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(ctx, Credentials{Username: "alice", Password: "otherpassword"})
	if !errors.Is(err, domainuser.ErrUsernameTaken) {
		t.Errorf("duplicate Register = %v, want ErrUsernameTaken", err)
	}
}

func TestLoginNormalizesFailures(t *testing.T) {
	t.Parallel()
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Username: "alice", Password: "sup3rsecret"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// wrong password and unknown user look identical to the caller
	for _, creds := range []Credentials{
		{Username: "alice", Password: "wrongwrong"},
		{Username: "nobody", Password: "sup3rsecret"},
		{Username: "", Password: "sup3rsecret"},
	} {
		if _, err := svc.Login(ctx, creds); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q) = %v, want ErrInvalidCredentials", creds.Username, err)
		}
	}

	res, err := svc.Login(ctx, Credentials{Username: "alice", Password: "sup3rsecret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Error("expected a session token on successful login")
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	t.Parallel()
	svc := newAuthService()
	ctx := context.Background()

	res, err := svc.Register(ctx, Credentials{Username: "alice", Password: "sup3rsecret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, res.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Errorf("ResolveToken after logout = %v, want ErrSessionNotFound", err)
	}
	// repeated logout is a no-op
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Errorf("second Logout = %v, want nil", err)
	}
}

func TestExistsAndVerify(t *testing.T) {
	t.Parallel()
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Username: "alice", Password: "sup3rsecret"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ok, err := svc.Exists(ctx, "alice")
	if err != nil || !ok {
		t.Errorf("Exists(alice) = %v, %v; want true", ok, err)
	}
	ok, err = svc.Exists(ctx, "nobody")
	if err != nil || ok {
		t.Errorf("Exists(nobody) = %v, %v; want false", ok, err)
	}

	ok, err = svc.Verify(ctx, "alice", "sup3rsecret")
	if err != nil || !ok {
		t.Errorf("Verify good password = %v, %v; want true", ok, err)
	}
	ok, err = svc.Verify(ctx, "alice", "wrongwrong")
	if err != nil || ok {
		t.Errorf("Verify bad password = %v, %v; want false", ok, err)
	}
	ok, err = svc.Verify(ctx, "nobody", "sup3rsecret")
	if err != nil || ok {
		t.Errorf("Verify unknown user = %v, %v; want false without error", ok, err)
	}
}

func TestResolveTokenRejectsBlank(t *testing.T) {
	t.Parallel()
	svc := newAuthService()
	if _, err := svc.ResolveToken(context.Background(), "  "); !errors.Is(err, domainauth.ErrTokenRequired) {
		t.Errorf("ResolveToken(blank) = %v, want ErrTokenRequired", err)
	}
}
