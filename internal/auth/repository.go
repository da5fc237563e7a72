// internal/auth/repository.go
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"exam-quiz/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetUserByProviderSubject(ctx context.Context, provider, subject string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("provider = ? AND subject_id = ?", provider, subject).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		log.Printf("Error finding user %s/%s: %v", provider, subject, err)
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *Repository) TouchLogin(ctx context.Context, user *models.User, name string, at time.Time) error {
	updates := map[string]interface{}{"last_login_at": at}
	if name != "" {
		updates["name"] = name
	}
	if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		log.Printf("Error updating login time for user %d: %v", user.ID, err)
		return err
	}
	return nil
}
