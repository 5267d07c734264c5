package model

import (
	"time"
)

type AwardStatus string

const (
	AwardEnrolled  AwardStatus = "enrolled"
	AwardCompleted AwardStatus = "completed"
)

// StartupAwardProgress 创业奖三阶段进度，按(用户邮箱, 课程)唯一
// 阶段N的completed_at仅在enrolled_at非空时才可能非空；
// current_phase反映达到的最高阶段。
// swagger:model StartupAwardProgress
type StartupAwardProgress struct {
	BaseModel
	UserEmail string `gorm:"size:100;index:idx_award_email_course,unique;not null" json:"userEmail"`
	CourseID  uint   `gorm:"index:idx_award_email_course,unique;not null" json:"courseId"`

	Phase1EnrolledAt  *time.Time `json:"phase1EnrolledAt"`
	Phase1CompletedAt *time.Time `json:"phase1CompletedAt"`
	Phase2EnrolledAt  *time.Time `json:"phase2EnrolledAt"`
	Phase2CompletedAt *time.Time `json:"phase2CompletedAt"`
	Phase3EnrolledAt  *time.Time `json:"phase3EnrolledAt"`
	Phase3CompletedAt *time.Time `json:"phase3CompletedAt"`

	CurrentPhase int         `gorm:"default:1" json:"currentPhase"`
	Status       AwardStatus `gorm:"size:20;default:'enrolled'" json:"status"`
}

func (StartupAwardProgress) TableName() string {
	return "startup_award_progress"
}
