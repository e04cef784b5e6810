package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Runteryaa/RunStore/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	AppHandler  *AppHTTP
	JWTSecret   []byte
}

// Register wires the three auth tiers: public routes resolve identity
// optionally, authenticated routes require a valid token, admin routes
// additionally require the admin role.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMW := middleware.NewBearerAuth(d.JWTSecret)

	auth := e.Group("/api/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/me", d.AuthHandler.Me, authMW.RequireAuth)

	apps := e.Group("/api/apps", authMW.Optional)
	apps.GET("", d.AppHandler.List)
	apps.GET("/mine", d.AppHandler.MyApps, authMW.RequireAuth)
	apps.GET("/:id", d.AppHandler.Get)
	apps.POST("", d.AppHandler.Create, authMW.RequireAuth)
	apps.PATCH("/:id/status", d.AppHandler.UpdateStatus, authMW.RequireAdmin)
	apps.POST("/:id/download", d.AppHandler.Download)
}
