package model

import (
	"gorm.io/datatypes"
)

// QuizAttempt 测验作答记录，只追加不修改
// 同一(user, quiz)允许多次作答，全部保留。
// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	UserID   uint           `gorm:"index;not null" json:"userId"`
	QuizID   uint           `gorm:"index;not null" json:"quizId"`
	LessonID uint           `gorm:"index;not null" json:"lessonId"`
	Answers  datatypes.JSON `json:"answers"`
	Score    int            `gorm:"not null" json:"score"`
	Passed   bool           `gorm:"not null" json:"passed"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
