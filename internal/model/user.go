package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'student'" json:"role"`
	Avatar    string    `gorm:"size:255" json:"avatar"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	// 注册时写入，登录/活跃时由业务代码刷新
	LastLogin time.Time `json:"lastLogin"`
	LastSeen  time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// AuthIdentity 认证提供商侧的身份记录
// 用户可能先通过OAuth登录（存在于认证子系统），稍后才在users表中落地，
// 因此按邮箱解析用户时需要回退到这张表。
type AuthIdentity struct {
	BaseModel
	Provider   string `gorm:"size:50;not null;index:idx_provider_subject,unique" json:"provider"`
	Subject    string `gorm:"size:255;not null;index:idx_provider_subject,unique" json:"subject"`
	Email      string `gorm:"size:100;index" json:"email"`
	Name       string `gorm:"size:100" json:"name"`
	UserID     *uint  `gorm:"index" json:"userId"` // 关联的users记录，可能尚未落地
	RawProfile string `gorm:"type:text" json:"-"`
}

func (AuthIdentity) TableName() string {
	return "auth_identities"
}
