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

type AppHTTP struct {
	Svc *service.AppService
}

func (h *AppHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "apps_list")

	status := c.QueryParam("status")
	search := c.QueryParam("search")

	apps, err := h.Svc.List(ctx, status, search)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("list_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list apps")
	}

	return c.JSON(http.StatusOK, apps)
}

func (h *AppHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "apps_get")

	app, err := h.Svc.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_error", "status", 404, "reason", "app not found")
			return echo.NewHTTPError(http.StatusNotFound, "app not found")
		}
		l.Error("get_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get app")
	}

	return c.JSON(http.StatusOK, app)
}

func (h *AppHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "apps_create")

	var req transport.CreateAppRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	callerID, _ := c.Get(middleware.CtxUserID).(string)
	app, err := h.Svc.Create(ctx, callerID, &req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("create_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create app")
	}

	return c.JSON(http.StatusCreated, app)
}

func (h *AppHTTP) MyApps(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "apps_my_apps")

	callerID, _ := c.Get(middleware.CtxUserID).(string)
	apps, err := h.Svc.MyApps(ctx, callerID)
	if err != nil {
		l.Error("my_apps_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list apps")
	}

	return c.JSON(http.StatusOK, apps)
}

func (h *AppHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "apps_update_status")

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_status_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	callerRole, _ := c.Get(middleware.CtxRole).(string)
	app, err := h.Svc.UpdateStatus(ctx, callerRole, c.Param("id"), req.Status, req.RejectionReason)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "app not found")
		}
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("update_status_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update status")
	}

	return c.JSON(http.StatusOK, app)
}

// Download counts a download intent. Public and deliberately not gated on
// review status.
func (h *AppHTTP) Download(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "apps_download")

	app, err := h.Svc.IncrementDownloads(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("download_error", "status", 404, "reason", "app not found")
			return echo.NewHTTPError(http.StatusNotFound, "app not found")
		}
		l.Error("download_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count download")
	}

	return c.JSON(http.StatusOK, app)
}
