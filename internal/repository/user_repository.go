package repository

import (
	"startup_edu_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_seen", time.Now()).
		Error
}

// FindIdentityByEmail 查认证提供商侧的身份记录，用于users表未命中时的回退解析
func (r *UserRepository) FindIdentityByEmail(email string) (*model.AuthIdentity, error) {
	var identity model.AuthIdentity
	err := r.DB.Where("email = ?", email).Order("created_at DESC").First(&identity).Error
	return &identity, err
}

func (r *UserRepository) CreateIdentity(identity *model.AuthIdentity) error {
	return r.DB.Create(identity).Error
}
