package repository

import (
	"startup_edu_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) FindPublished() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("published = ?", true).Order("created_at DESC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

// FindByIDWithLessons 返回课程及按顺序排列的课节
func (r *CourseRepository) FindByIDWithLessons(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Course{}, id).Error
}

func (r *CourseRepository) FindEnrollment(userID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	return &enrollment, err
}

func (r *CourseRepository) CreateEnrollment(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *CourseRepository) FindEnrollmentsByUser(userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Where("user_id = ?", userID).
		Preload("Course").
		Order("created_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}
