package middleware

import (
	"net/http"

	"delivery_portal/internal/lib/jwt"
	"delivery_portal/internal/transport/http/dto/response"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const adminContextKey = "admin"

// AdminAuth пропускает только запросы с bearer-токеном администратора (HS256, role=admin)
func AdminAuth(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: adminContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return jwt.ParseAdminToken(auth, secret)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, response.ErrAdminRequired)
		},
	})
}

// Admin claims администратора, прошедшего AdminAuth
func Admin(c echo.Context) (*jwt.AdminClaims, bool) {
	claims, ok := c.Get(adminContextKey).(*jwt.AdminClaims)
	return claims, ok
}
