package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRequireRole(t *testing.T, userRoles []string, required ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, userRoles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	return rec, RequireRole(required...)(handler)(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	rec, err := runRequireRole(t, []string{RoleMidwife}, RoleMidwife, RolePatient)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	_, err := runRequireRole(t, []string{RolePatient}, RoleMidwife)
	if err == nil {
		t.Fatal("expected error for unauthorized role")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	if _, err := runRequireRole(t, nil, RoleMidwife); err == nil {
		t.Error("expected error for anonymous request")
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	if _, err := runRequireRole(t, []string{RoleAdmin}, RoleMidwife); err != nil {
		t.Error("admin should bypass role checks")
	}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		has      []string
		required []string
		want     bool
	}{
		{[]string{RoleMidwife}, []string{RoleMidwife}, true},
		{[]string{RolePatient}, []string{RoleMidwife, RolePatient}, true},
		{[]string{RolePatient}, []string{RoleMidwife}, false},
		{[]string{RoleAdmin}, []string{RoleMidwife}, true},
		{[]string{RoleAdmin}, nil, true},
		{nil, []string{RolePatient}, false},
	}
	for _, tt := range tests {
		if got := HasRole(tt.has, tt.required...); got != tt.want {
			t.Errorf("HasRole(%v, %v) = %v, want %v", tt.has, tt.required, got, tt.want)
		}
	}
}

func TestUserIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "user-123")
	if uid := UserIDFromContext(ctx); uid != "user-123" {
		t.Errorf("expected user-123, got %s", uid)
	}
	if empty := UserIDFromContext(context.Background()); empty != "" {
		t.Errorf("expected empty string, got %s", empty)
	}
}
