package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Runteryaa/RunStore/internal/logging"
	"github.com/Runteryaa/RunStore/internal/middleware"
	"github.com/Runteryaa/RunStore/internal/service"
	"github.com/Runteryaa/RunStore/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		}
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("register_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "register failed")
	}

	l.Info("register_success", "user_id", res.User.ID)
	return c.JSON(http.StatusCreated, transport.AuthResponse{
		Token: res.Token,
		User:  transport.UserViewFrom(res.User),
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		l.Error("login_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.AuthResponse{
		Token: res.Token,
		User:  transport.UserViewFrom(res.User),
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_me")

	userID, _ := c.Get(middleware.CtxUserID).(string)
	user, err := h.Svc.Me(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("me_error", "status", 404, "reason", "user not found")
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("me_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load user")
	}

	return c.JSON(http.StatusOK, transport.UserViewFrom(user))
}
