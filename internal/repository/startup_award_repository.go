package repository

import (
	"startup_edu_backend/internal/model"

	"gorm.io/gorm"
)

type StartupAwardRepository struct {
	DB *gorm.DB
}

func NewStartupAwardRepository(db *gorm.DB) *StartupAwardRepository {
	return &StartupAwardRepository{DB: db}
}

func (r *StartupAwardRepository) FindByEmailAndCourse(email string, courseID uint) (*model.StartupAwardProgress, error) {
	var rec model.StartupAwardProgress
	err := r.DB.Where("user_email = ? AND course_id = ?", email, courseID).First(&rec).Error
	return &rec, err
}

func (r *StartupAwardRepository) Create(rec *model.StartupAwardProgress) error {
	return r.DB.Create(rec).Error
}

func (r *StartupAwardRepository) Save(rec *model.StartupAwardProgress) error {
	return r.DB.Save(rec).Error
}

// FindEnrolled 返回尚未完成当前阶段的记录，供后台对账任务重查
func (r *StartupAwardRepository) FindEnrolled(limit int) ([]model.StartupAwardProgress, error) {
	var recs []model.StartupAwardProgress
	err := r.DB.Where("status = ?", model.AwardEnrolled).
		Order("updated_at ASC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

func (r *StartupAwardRepository) FindByCourse(courseID uint) ([]model.StartupAwardProgress, error) {
	var recs []model.StartupAwardProgress
	err := r.DB.Where("course_id = ?", courseID).Order("created_at ASC").Find(&recs).Error
	return recs, err
}
