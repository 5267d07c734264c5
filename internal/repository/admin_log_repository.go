package repository

import (
	"startup_edu_backend/internal/model"

	"gorm.io/gorm"
)

type AdminLogRepository struct {
	DB *gorm.DB
}

func NewAdminLogRepository(db *gorm.DB) *AdminLogRepository {
	return &AdminLogRepository{DB: db}
}

func (r *AdminLogRepository) Create(entry *model.AdminLog) error {
	return r.DB.Create(entry).Error
}

func (r *AdminLogRepository) FindAll(page, limit int) ([]model.AdminLog, int64, error) {
	var logs []model.AdminLog
	var total int64

	query := r.DB.Model(&model.AdminLog{})
	query.Count(&total)

	offset := (page - 1) * limit
	err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&logs).Error
	return logs, total, err
}
