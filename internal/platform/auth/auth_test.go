package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authCall(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	var captured echo.Context
	err := mw(func(c echo.Context) error {
		captured = c
		return nil
	})(c)
	return captured, err
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleHospital},
	})

	c, err := authCall(t, JWTMiddleware(JWTConfig{SigningKey: testKey}), "Bearer "+token)
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if got := UserIDFromContext(c.Request().Context()); got != "user-1" {
		t.Errorf("expected subject on context, got %q", got)
	}
	roles := RolesFromContext(c.Request().Context())
	if len(roles) != 1 || roles[0] != RoleHospital {
		t.Errorf("expected roles on context, got %v", roles)
	}
}

func TestJWTMiddlewareRejections(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})

	expired := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKeyToken := func() string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, _ := token.SignedString([]byte("other-key"))
		return signed
	}()

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKeyToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := authCall(t, mw, tc.header)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %v", err)
			}
		})
	}
}

func TestJWTMiddlewareIssuerCheck(t *testing.T) {
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "other-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := authCall(t, JWTMiddleware(JWTConfig{SigningKey: testKey, Issuer: "portal"}), "Bearer "+token)
	if err == nil {
		t.Error("token from the wrong issuer must be rejected")
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	c, err := authCall(t, DevAuthMiddleware(), "")
	if err != nil {
		t.Fatalf("dev auth: %v", err)
	}
	if got := UserIDFromContext(c.Request().Context()); got != "dev-user" {
		t.Errorf("expected dev-user, got %q", got)
	}
	roles := RolesFromContext(c.Request().Context())
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("expected admin role in dev, got %v", roles)
	}
}

func TestRequireRole(t *testing.T) {
	run := func(roles []string, mw echo.MiddlewareFunc) error {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if roles != nil {
			req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, roles))
		}
		c := e.NewContext(req, httptest.NewRecorder())
		return mw(func(c echo.Context) error { return nil })(c)
	}

	guard := RequireRole(RoleHospital, RoleMR)

	if err := run([]string{RoleHospital}, guard); err != nil {
		t.Errorf("hospital should pass: %v", err)
	}
	if err := run([]string{RoleAdmin}, guard); err != nil {
		t.Errorf("admin always passes: %v", err)
	}
	if err := run([]string{RoleSupplier}, guard); err == nil {
		t.Error("supplier should be forbidden")
	} else if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
	if err := run(nil, guard); err == nil {
		t.Error("no roles should be forbidden")
	}
}
