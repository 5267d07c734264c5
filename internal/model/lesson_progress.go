package model

import (
	"time"
)

// LessonStatus 课节对某个用户的派生状态
type LessonStatus string

const (
	LessonLocked    LessonStatus = "locked"
	LessonUnlocked  LessonStatus = "unlocked"
	LessonCompleted LessonStatus = "completed"
)

// LessonProgress 记录用户对某节课的学习事实
// (user_id, course_id, lesson_id) 组合唯一，所有写入都是基于该键的upsert，
// 不会产生重复行。completed是控制解锁的权威标志。
// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel
	UserID   uint `gorm:"index:idx_user_course_lesson,unique;not null" json:"userId"`
	CourseID uint `gorm:"index:idx_user_course_lesson,unique;not null" json:"courseId"`
	LessonID uint `gorm:"index:idx_user_course_lesson,unique;not null" json:"lessonId"`

	VideoWatched  bool `gorm:"default:false" json:"videoWatched"`
	QuizCompleted bool `gorm:"default:false" json:"quizCompleted"`
	Completed     bool `gorm:"default:false" json:"completed"`

	VideoWatchedAt  *time.Time `json:"videoWatchedAt"`
	QuizCompletedAt *time.Time `json:"quizCompletedAt"`
	CompletedAt     *time.Time `json:"completedAt"` // completed为true时必非空
	LastAccessedAt  time.Time  `json:"lastAccessedAt"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
