package model

import "time"

// Event 平台活动（线上/线下），由管理后台维护
// swagger:model Event
type Event struct {
	BaseModel
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"size:255" json:"location"`
	StartsAt    time.Time `gorm:"index" json:"startsAt"`
	Published   bool      `gorm:"default:false;index" json:"published"`
}

func (Event) TableName() string {
	return "events"
}
