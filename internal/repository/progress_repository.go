package repository

import (
	"startup_edu_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// 进度记录的唯一键，所有写入都基于它做upsert
var progressConflictColumns = []clause.Column{
	{Name: "user_id"},
	{Name: "course_id"},
	{Name: "lesson_id"},
}

// UpsertVideoWatched 记录视频观看事实，不触碰completed
func (r *ProgressRepository) UpsertVideoWatched(userID, courseID, lessonID uint, now time.Time) error {
	rec := model.LessonProgress{
		UserID:         userID,
		CourseID:       courseID,
		LessonID:       lessonID,
		VideoWatched:   true,
		VideoWatchedAt: &now,
		LastAccessedAt: now,
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns: progressConflictColumns,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"video_watched":    true,
			"video_watched_at": gorm.Expr("COALESCE(video_watched_at, ?)", now),
			"last_accessed_at": now,
			"updated_at":       now,
		}),
	}).Create(&rec).Error
}

// UpsertCompleted 将课节标记为已完成；completed_at只在首次完成时写入
func (r *ProgressRepository) UpsertCompleted(userID, courseID, lessonID uint, now time.Time) error {
	rec := model.LessonProgress{
		UserID:         userID,
		CourseID:       courseID,
		LessonID:       lessonID,
		Completed:      true,
		CompletedAt:    &now,
		LastAccessedAt: now,
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns: progressConflictColumns,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"completed":        true,
			"completed_at":     gorm.Expr("COALESCE(completed_at, ?)", now),
			"last_accessed_at": now,
			"updated_at":       now,
		}),
	}).Create(&rec).Error
}

// UpsertQuizResult 按测验结果写进度：通过则连带完成课节，未通过则保持未完成
func (r *ProgressRepository) UpsertQuizResult(userID, courseID, lessonID uint, passed bool, now time.Time) error {
	rec := model.LessonProgress{
		UserID:         userID,
		CourseID:       courseID,
		LessonID:       lessonID,
		QuizCompleted:  passed,
		Completed:      passed,
		LastAccessedAt: now,
	}
	assignments := map[string]interface{}{
		"quiz_completed":   passed,
		"completed":        passed,
		"last_accessed_at": now,
		"updated_at":       now,
	}
	if passed {
		rec.QuizCompletedAt = &now
		rec.CompletedAt = &now
		assignments["quiz_completed_at"] = gorm.Expr("COALESCE(quiz_completed_at, ?)", now)
		assignments["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", now)
	} else {
		assignments["quiz_completed_at"] = nil
		assignments["completed_at"] = nil
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   progressConflictColumns,
		DoUpdates: clause.Assignments(assignments),
	}).Create(&rec).Error
}

func (r *ProgressRepository) FindByUserAndLesson(userID, courseID, lessonID uint) (*model.LessonProgress, error) {
	var rec model.LessonProgress
	err := r.DB.Where("user_id = ? AND course_id = ? AND lesson_id = ?", userID, courseID, lessonID).
		First(&rec).Error
	return &rec, err
}

func (r *ProgressRepository) FindByUserAndCourse(userID, courseID uint) ([]model.LessonProgress, error) {
	var recs []model.LessonProgress
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&recs).Error
	return recs, err
}

// CompletedLessonIDs 返回用户在课程内已完成的课节ID集合
func (r *ProgressRepository) CompletedLessonIDs(userID, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Pluck("lesson_id", &ids).Error
	return ids, err
}

// DeleteByUserAndCourse 删除用户在课程内的全部进度，仅供管理员重置使用
func (r *ProgressRepository) DeleteByUserAndCourse(userID, courseID uint) error {
	return r.DB.Unscoped().
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&model.LessonProgress{}).Error
}
