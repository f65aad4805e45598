package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/config"
	"github.com/iliyamo/marketplace-api/internal/repository"
	"github.com/iliyamo/marketplace-api/internal/token"
)

func newAuthFixture(t *testing.T) (*AuthHandler, *fakeUserStore, *fakeDenylist) {
	t.Helper()
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 60, BcryptCost: 4}
	users := newFakeUserStore()
	u := &repository.User{Name: "Alice", Email: "alice@example.com", PhoneNumber: "123"}
	if err := users.Create(context.Background(), u, "password1", cfg.BcryptCost); err != nil {
		t.Fatal(err)
	}
	denylist := newFakeDenylist()
	return NewAuthHandler(cfg, users, denylist), users, denylist
}

func TestLoginIssuesToken(t *testing.T) {
	h, _, _ := newAuthFixture(t)

	c, rec := newTestContext(http.MethodPost, "/v1/auth/login",
		`{"email":"alice@example.com","password":"password1"}`, nil)
	if err := h.Login(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decodeBody(rec)
	if got["access_token"] == nil || got["access_token"] == "" {
		t.Fatal("response missing access_token")
	}
	if got["token_type"] != "bearer" {
		t.Errorf("token_type = %v", got["token_type"])
	}
	if got["expires_in"] != float64(3600) {
		t.Errorf("expires_in = %v, want 3600", got["expires_in"])
	}
	if _, ok := got["password_hash"]; ok {
		t.Error("password hash must never be in a response")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h, _, _ := newAuthFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"email":"alice@example.com","password":"nope"}`},
		{"unknown email", `{"email":"ghost@example.com","password":"password1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodPost, "/v1/auth/login", tt.body, nil)
			if err := h.Login(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if decodeBody(rec)["error"] != "invalid credentials" {
				t.Errorf("unexpected body: %s", rec.Body)
			}
		})
	}
}

func TestLoginNeverTokensBannedUser(t *testing.T) {
	h, users, _ := newAuthFixture(t)
	u, _ := users.GetByEmail(context.Background(), "alice@example.com")
	if err := users.SetBanned(context.Background(), u.ID, true); err != nil {
		t.Fatal(err)
	}

	c, rec := newTestContext(http.MethodPost, "/v1/auth/login",
		`{"email":"alice@example.com","password":"password1"}`, nil)
	if err := h.Login(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body)
	}
	if _, ok := decodeBody(rec)["access_token"]; ok {
		t.Error("a banned account must never receive a token")
	}
}

func TestCheckTokenRotates(t *testing.T) {
	h, users, denylist := newAuthFixture(t)
	u, _ := users.GetByEmail(context.Background(), "alice@example.com")
	signed, claims, err := token.Issue(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		t.Fatal(err)
	}

	c, rec := newTestContext(http.MethodGet, "/v1/auth/checktoken", "", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	if err := h.CheckToken(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	fresh, _ := decodeBody(rec)["access_token"].(string)
	if fresh == "" || fresh == signed {
		t.Fatal("exchange must mint a different token")
	}
	if !denylist.IsRevoked(context.Background(), claims.JTI) {
		t.Error("the old jti must be revoked after rotation")
	}

	// The revoked token cannot be exchanged again.
	c, rec = newTestContext(http.MethodGet, "/v1/auth/checktoken", "", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	if err := h.CheckToken(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("replayed token: status = %d, want 401", rec.Code)
	}
}

func TestCheckTokenExpired(t *testing.T) {
	h, users, _ := newAuthFixture(t)
	u, _ := users.GetByEmail(context.Background(), "alice@example.com")
	signed, _, err := token.Issue(h.Cfg.JWTSecret, u.ID, -10)
	if err != nil {
		t.Fatal(err)
	}

	c, rec := newTestContext(http.MethodGet, "/v1/auth/checktoken", "", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	if err := h.CheckToken(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if decodeBody(rec)["error"] != "token expired" {
		t.Errorf("expired must be reported distinctly, got %s", rec.Body)
	}
}

func TestCheckTokenMissing(t *testing.T) {
	h, _, _ := newAuthFixture(t)

	c, rec := newTestContext(http.MethodGet, "/v1/auth/checktoken", "", nil)
	if err := h.CheckToken(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if decodeBody(rec)["error"] != "token not provided" {
		t.Errorf("unexpected body: %s", rec.Body)
	}
}

func TestLogoutRevokes(t *testing.T) {
	h, users, denylist := newAuthFixture(t)
	u, _ := users.GetByEmail(context.Background(), "alice@example.com")
	_, claims, err := token.Issue(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		t.Fatal(err)
	}

	// Logout runs behind the auth middleware, which stores the claims.
	for i := 0; i < 2; i++ { // revoking twice is a no-op
		c, rec := newTestContext(http.MethodGet, "/v1/auth/logout", "", nil)
		c.Set("token_claims", claims)
		if err := h.Logout(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("pass %d: status = %d: %s", i, rec.Code, rec.Body)
		}
	}
	if !denylist.IsRevoked(context.Background(), claims.JTI) {
		t.Error("jti must be revoked after logout")
	}
}
