package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func runJWT(t *testing.T, cfg JWTConfig, header string) (bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var called bool
	err := JWTMiddleware(cfg)(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})(c)
	return called, err
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	called, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "")
	if called {
		t.Error("handler should not be called")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	for _, header := range []string{"Basic abc123", "Bearer", "token-only"} {
		called, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, header)
		if called || err == nil {
			t.Errorf("header %q: expected rejection", header)
		}
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles: []string{RoleMidwife},
	}
	called, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+createTestToken(t, claims, testSigningKey))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
		},
	}
	called, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+createTestToken(t, claims, testSigningKey))
	if called || err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"}}
	called, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+createTestToken(t, claims, []byte("other-key")))
	if called || err == nil {
		t.Error("expected token signed with another key to be rejected")
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "anc-clinic"}
	token, err := IssueToken(JWTConfig{SigningKey: testSigningKey, Issuer: "someone-else"}, "u", "U", []string{RoleMidwife}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if called, err := runJWT(t, cfg, "Bearer "+token); called || err == nil {
		t.Error("expected issuer mismatch to be rejected")
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Skipper: func(echo.Context) bool { return true }}
	called, err := runJWT(t, cfg, "")
	if err != nil || !called {
		t.Errorf("expected skipped request to pass, got %v", err)
	}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "anc-clinic", Audience: "anc-api"}
	token, err := IssueToken(cfg, "user-456", "Bidan Rina", []string{RoleMidwife}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	err = JWTMiddleware(cfg)(func(c echo.Context) error {
		ctx := c.Request().Context()
		if uid := UserIDFromContext(ctx); uid != "user-456" {
			t.Errorf("expected user_id=user-456, got %s", uid)
		}
		if name := UserNameFromContext(ctx); name != "Bidan Rina" {
			t.Errorf("expected name, got %q", name)
		}
		if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != RoleMidwife {
			t.Errorf("expected roles=[midwife], got %v", roles)
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDevAuthMiddleware_WithDefaults(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := DevAuthMiddleware()(func(c echo.Context) error {
		ctx := c.Request().Context()
		if uid := UserIDFromContext(ctx); uid != "dev-user" {
			t.Errorf("expected user_id=dev-user, got %s", uid)
		}
		if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != RoleAdmin {
			t.Errorf("expected roles=[admin], got %v", roles)
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDevAuthMiddleware_RoleOverride(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Dev-Role", RolePatient)
	req.Header.Set("X-Dev-User", "8c1f4e0a-3b7d-4e55-9a51-0f5b2d9c7e11")
	c := e.NewContext(req, httptest.NewRecorder())

	err := DevAuthMiddleware()(func(c echo.Context) error {
		ctx := c.Request().Context()
		if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != RolePatient {
			t.Errorf("expected roles=[patient], got %v", roles)
		}
		if uid := UserIDFromContext(ctx); uid != "8c1f4e0a-3b7d-4e55-9a51-0f5b2d9c7e11" {
			t.Errorf("unexpected user id %s", uid)
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
