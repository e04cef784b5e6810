package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Runteryaa/RunStore/internal/models"
)

// orderNewest lists newest submissions first; Seq breaks created_at ties
// in insertion order.
const orderNewest = "created_at DESC, seq ASC"

func (r *GormRepo) CreateApp(ctx context.Context, app *models.App) error {
	return r.DB.WithContext(ctx).Create(app).Error
}

func (r *GormRepo) GetApp(ctx context.Context, id string) (*models.App, error) {
	var app models.App
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *GormRepo) ListApps(ctx context.Context, status, search string) ([]models.App, error) {
	q := r.DB.WithContext(ctx).Model(&models.App{})

	if status != "" {
		q = q.Where("status = ?", status)
	}
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	apps := make([]models.App, 0)
	if err := q.Order(orderNewest).Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *GormRepo) ListAppsByUploader(ctx context.Context, uploaderID string) ([]models.App, error) {
	apps := make([]models.App, 0)
	err := r.DB.WithContext(ctx).
		Where("uploader_id = ?", uploaderID).
		Order(orderNewest).
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// UpdateAppStatus overwrites status and rejection reason in one
// transaction so a concurrent downloads increment cannot interleave with
// the read-modify-write. A nil reason clears the column.
func (r *GormRepo) UpdateAppStatus(ctx context.Context, id, status string, reason *string) (*models.App, error) {
	var app models.App
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&app).Error; err != nil {
			return err
		}
		if err := tx.Model(&app).Updates(map[string]any{
			"status":           status,
			"rejection_reason": reason,
		}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&app).Error
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// IncrementDownloads bumps the counter with a single atomic UPDATE
// expression, so concurrent calls on the same id never lose an update.
// updated_at is deliberately left untouched.
func (r *GormRepo) IncrementDownloads(ctx context.Context, id string) (*models.App, error) {
	res := r.DB.WithContext(ctx).Model(&models.App{}).
		Where("id = ?", id).
		UpdateColumn("downloads", gorm.Expr("downloads + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetApp(ctx, id)
}
