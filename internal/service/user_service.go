package service

import (
	"errors"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserFilter 定义用户筛选条件
// swagger:model UserFilter
type UserFilter struct {
	Role      string
	Status    string
	Search    string
	StartDate time.Time
	EndDate   time.Time
}

// UserService 处理用户相关的业务逻辑
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

// GetUsers 获取用户列表，支持分页和筛选
func (s *UserService) GetUsers(page, pageSize int, filter UserFilter) ([]model.User, int, error) {
	var users []model.User
	var total int64

	query := s.UserRepo.DB.Model(&model.User{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if filter.Status == "online" {
		query = query.Where("last_login > ?", time.Now().Add(-24*time.Hour))
	} else if filter.Status == "offline" {
		query = query.Where("last_login <= ?", time.Now().Add(-24*time.Hour))
	} else if filter.Status == "disabled" {
		query = query.Where("disabled = ?", true)
	}

	if filter.Search != "" {
		searchTerm := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", searchTerm, searchTerm)
	}

	if !filter.StartDate.IsZero() {
		query = query.Where("created_at >= ?", filter.StartDate)
	}

	if !filter.EndDate.IsZero() {
		query = query.Where("created_at <= ?", filter.EndDate)
	}

	query.Count(&total)

	offset := (page - 1) * pageSize
	query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&users)

	return users, int(total), nil
}

func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile 用户更新自己的昵称/头像
func (s *UserService) UpdateProfile(userID uint, name, avatar string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if avatar != "" {
		user.Avatar = avatar
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetDisabled 管理员启用/禁用账号
func (s *UserService) SetDisabled(userID uint, disabled bool) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return err
	}
	user.Disabled = disabled
	return s.UserRepo.Update(user)
}

// ResetPassword 管理员重置用户密码
func (s *UserService) ResetPassword(userID uint, newPassword string) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	return s.UserRepo.Update(user)
}
