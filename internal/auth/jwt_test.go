package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("secret", "", 0).WithClock(fixedClock(now))

	token, exp, err := svc.Issue(Identity{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(3 * time.Hour)) {
		t.Fatalf("exp = %s, want %s", exp, now.Add(3*time.Hour))
	}

	svc.WithClock(fixedClock(now.Add(2*time.Hour + 59*time.Minute)))
	identity, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.Email != "ada@example.com" {
		t.Fatalf("Email = %q, want %q", identity.Email, "ada@example.com")
	}
}

func TestVerifyExpired(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("secret", "", 0).WithClock(fixedClock(now))

	token, _, err := svc.Issue(Identity{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	svc.WithClock(fixedClock(now.Add(3 * time.Hour)))
	if _, err := svc.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	issuer := NewTokenService("secret-a", "", time.Hour)
	verifier := NewTokenService("secret-b", "", time.Hour)

	token, _, err := issuer.Issue(Identity{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	svc := NewTokenService("secret", "", time.Hour)
	token, _, err := svc.Issue(Identity{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, _, err := svc.Issue(Identity{Email: "eve@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	a := strings.Split(token, ".")
	b := strings.Split(other, ".")
	forged := a[0] + "." + b[1] + "." + a[2]
	if _, err := svc.Verify(forged); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	svc := NewTokenService("secret", "", time.Hour)
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("Verify(%q) err = %v, want ErrInvalidSignature", token, err)
		}
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	svc := NewTokenService("secret", "", time.Hour)
	claims := Claims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyIssuerMismatch(t *testing.T) {
	issuer := NewTokenService("secret", "someone-else", time.Hour)
	verifier := NewTokenService("secret", "studygroup", time.Hour)

	token, _, err := issuer.Issue(Identity{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}
