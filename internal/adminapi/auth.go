package adminapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/svpecas/catalogd/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func registerAuthRoutes() {
	webserver.ApiPOST("/auth/login", postLogin)
}

type loginPayload struct {
	Password string `json:"password" form:"password"`
}

// postLogin checks the shared admin secret and issues a session token. On a
// wrong password the client just prompts again; there is no lockout.
func postLogin(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	secret := getApp(c).Config().Web.Secret
	if !secretMatches(secret, payload.Password) {
		zap.L().Warn("adminapi: failed login attempt", zap.String("remote", c.RealIP()))
		return fail(c, http.StatusUnauthorized, "WRONG_PASSWORD", "Senha incorreta", nil)
	}

	claims := jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(12 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(getApp(c).Config().Web.JwtSecret))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}
	return ok(c, map[string]interface{}{"token": signed})
}

// secretMatches accepts either a bcrypt hash or a plaintext secret in the
// config; the plain comparison is constant time.
func secretMatches(secret, attempt string) bool {
	if strings.HasPrefix(secret, "$2a$") || strings.HasPrefix(secret, "$2b$") || strings.HasPrefix(secret, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(attempt)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(attempt)) == 1
}
