package service

import (
	"context"
	"errors"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Runteryaa/RunStore/internal/events"
	"github.com/Runteryaa/RunStore/internal/logging"
	"github.com/Runteryaa/RunStore/internal/models"
	"github.com/Runteryaa/RunStore/internal/repo"
	"github.com/Runteryaa/RunStore/internal/search"
	"github.com/Runteryaa/RunStore/internal/transport"
)

// DefaultRejectionReason replaces an empty reason on rejection.
const DefaultRejectionReason = "No reason provided"

// AppService owns the submission lifecycle: apps are created pending and
// move between approved and rejected by admin decision only. No state is
// terminal; an admin may re-decide a decided app.
type AppService struct {
	Repo   *repo.GormRepo
	Events *events.Producer
	Search *search.Index
}

func (s *AppService) publish(ctx context.Context, key string, event map[string]any) {
	l := logging.FromContext(ctx)
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pubCtx, key, event); err != nil {
		l.Error("event_publish_failed", "key", key, "error", err)
	}
}

func (s *AppService) index(ctx context.Context, app *models.App) {
	if s.Search == nil {
		return
	}
	l := logging.FromContext(ctx)
	if err := s.Search.IndexApp(ctx, app); err != nil {
		l.Error("search_index_failed", "app_id", app.ID, "error", err)
	}
}

func validAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validateCreate(req *transport.CreateAppRequest) error {
	if utf8.RuneCountInString(req.Name) < 2 {
		return fieldErr("name", "must be at least 2 characters")
	}
	if utf8.RuneCountInString(req.PackageName) < 3 {
		return fieldErr("packageName", "must be at least 3 characters")
	}
	if utf8.RuneCountInString(req.Description) < 10 {
		return fieldErr("description", "must be at least 10 characters")
	}
	if req.Version == "" {
		return fieldErr("version", "must not be empty")
	}
	if !validAbsoluteURL(req.IconURL) {
		return fieldErr("iconUrl", "must be an absolute http(s) URL")
	}
	if !validAbsoluteURL(req.APKURL) {
		return fieldErr("apkUrl", "must be an absolute http(s) URL")
	}
	if req.FileSize < 0 {
		return fieldErr("fileSize", "must not be negative")
	}
	return nil
}

// Create submits a new app for the authenticated caller. The app starts
// pending with zero downloads; uploaderName snapshots the caller's current
// display name.
func (s *AppService) Create(ctx context.Context, callerID string, req *transport.CreateAppRequest) (*models.App, error) {
	l := logging.FromContext(ctx).With("svc", "apps.create")

	if err := validateCreate(req); err != nil {
		return nil, err
	}

	user, err := s.Repo.GetUserByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("create_failed", "status", 404, "reason", "uploader not found")
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := time.Now()
	app := &models.App{
		ID:           uuid.NewString(),
		Name:         req.Name,
		PackageName:  req.PackageName,
		Description:  req.Description,
		Version:      req.Version,
		IconURL:      req.IconURL,
		APKURL:       req.APKURL,
		FileSize:     req.FileSize,
		Status:       models.StatusPending,
		UploaderID:   user.ID,
		UploaderName: user.Name,
		Downloads:    0,
		Seq:          now.UnixNano(),
	}
	if err := s.Repo.CreateApp(ctx, app); err != nil {
		l.Error("create_failed", "status", 500, "error", err)
		return nil, err
	}

	s.index(ctx, app)
	s.publish(ctx, app.ID, map[string]any{
		"type":       "app_submitted",
		"appId":      app.ID,
		"uploaderId": app.UploaderID,
		"name":       app.Name,
	})

	l.Info("create_success", "app_id", app.ID)
	return app, nil
}

// List returns apps newest first, optionally restricted to one status and
// filtered by a case-insensitive substring over name or description. With
// a search term and a configured index the query goes to elasticsearch;
// any index failure falls back to the database.
func (s *AppService) List(ctx context.Context, status, searchTerm string) ([]models.App, error) {
	l := logging.FromContext(ctx).With("svc", "apps.list")

	if err := validateStatusFilter(status); err != nil {
		return nil, err
	}

	if searchTerm != "" && s.Search != nil {
		apps, err := s.Search.Query(ctx, searchTerm, status)
		if err == nil {
			return apps, nil
		}
		l.Warn("search_fallback", "reason", "index query failed", "error", err)
	}

	return s.Repo.ListApps(ctx, status, searchTerm)
}

func validateStatusFilter(status string) error {
	switch status {
	case "", models.StatusPending, models.StatusApproved, models.StatusRejected:
		return nil
	}
	return fieldErr("status", "must be pending, approved or rejected")
}

func (s *AppService) Get(ctx context.Context, id string) (*models.App, error) {
	app, err := s.Repo.GetApp(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return app, nil
}

func (s *AppService) MyApps(ctx context.Context, callerID string) ([]models.App, error) {
	return s.Repo.ListAppsByUploader(ctx, callerID)
}

// UpdateStatus applies an admin review decision. Approving clears any
// rejection reason; rejecting without a reason records a placeholder.
// Previously decided apps may be re-decided.
func (s *AppService) UpdateStatus(ctx context.Context, callerRole, id, status, reason string) (*models.App, error) {
	l := logging.FromContext(ctx).With("svc", "apps.update_status", "app_id", id)

	if callerRole != models.RoleAdmin {
		l.Warn("update_status_failed", "status", 403, "reason", "caller is not admin")
		return nil, ErrForbidden
	}

	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, fieldErr("status", "must be approved or rejected")
	}

	var reasonPtr *string
	if status == models.StatusRejected {
		if reason == "" {
			reason = DefaultRejectionReason
		}
		reasonPtr = &reason
	}

	app, err := s.Repo.UpdateAppStatus(ctx, id, status, reasonPtr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("update_status_failed", "status", 404, "reason", "app not found")
			return nil, ErrNotFound
		}
		l.Error("update_status_failed", "status", 500, "error", err)
		return nil, err
	}

	s.index(ctx, app)
	s.publish(ctx, app.ID, map[string]any{
		"type":   "app_status_changed",
		"appId":  app.ID,
		"status": app.Status,
	})

	l.Info("update_status_success", "new_status", app.Status)
	return app, nil
}

// IncrementDownloads counts a download intent for any known app id. By
// product decision the counter is not gated on review status: pending and
// rejected apps count too.
func (s *AppService) IncrementDownloads(ctx context.Context, id string) (*models.App, error) {
	l := logging.FromContext(ctx).With("svc", "apps.increment_downloads", "app_id", id)

	app, err := s.Repo.IncrementDownloads(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		l.Error("increment_downloads_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, app.ID, map[string]any{
		"type":      "app_downloaded",
		"appId":     app.ID,
		"downloads": app.Downloads,
	})

	return app, nil
}
