package model

// AdminLog 管理后台操作审计日志
// swagger:model AdminLog
type AdminLog struct {
	BaseModel
	AdminID  uint   `gorm:"index;not null" json:"adminId"`
	Action   string `gorm:"size:100;not null" json:"action"`
	Target   string `gorm:"size:255" json:"target"`
	Detail   string `gorm:"type:text" json:"detail"`
	ClientIP string `gorm:"size:45" json:"clientIp"`
}

func (AdminLog) TableName() string {
	return "admin_logs"
}
