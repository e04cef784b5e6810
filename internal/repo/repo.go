package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Runteryaa/RunStore/internal/models"
)

var ErrUserAlreadyExist = errors.New("user already exist")

type GormRepo struct {
	DB *gorm.DB
}

// CreateUser inserts u unless a user with the same email already exists.
// The check-then-insert is backed by a unique index on email, so a lost
// race surfaces as an insert error rather than a duplicate row.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
