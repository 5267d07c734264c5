package repository

import (
	"startup_edu_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) FindByLesson(lessonID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).Where("lesson_id = ?", lessonID).First(&quiz).Error
	return &quiz, err
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Quiz{}, id).Error
}

// CreateAttempt 追加一条作答记录；记录写入后不再修改
func (r *QuizRepository) CreateAttempt(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *QuizRepository) FindAttempts(userID, quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("created_at ASC").
		Find(&attempts).Error
	return attempts, err
}
