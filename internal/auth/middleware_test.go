package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(tokens *TokenService, seen *Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireUser(tokens), func(c *gin.Context) {
		identity, ok := IdentityFrom(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		*seen = identity
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireUserNoCookie(t *testing.T) {
	var seen Identity
	r := newAuthRouter(NewTokenService("secret", "", time.Hour), &seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRequireUserInvalidToken(t *testing.T) {
	var seen Identity
	r := newAuthRouter(NewTokenService("secret", "", time.Hour), &seen)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-token"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if seen.Email != "" {
		t.Fatal("handler should not be called")
	}
}

func TestRequireUserExpiredToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	tokens := NewTokenService("secret", "", time.Hour).WithClock(fixedClock(now))
	token, _, err := tokens.Issue(Identity{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tokens.WithClock(fixedClock(now.Add(2 * time.Hour)))

	var seen Identity
	r := newAuthRouter(tokens, &seen)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRequireUserValidToken(t *testing.T) {
	tokens := NewTokenService("secret", "", time.Hour)
	token, _, err := tokens.Issue(Identity{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen Identity
	r := newAuthRouter(tokens, &seen)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if seen.Email != "ada@example.com" {
		t.Fatalf("Email = %q, want %q", seen.Email, "ada@example.com")
	}
}
