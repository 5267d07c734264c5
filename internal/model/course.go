package model

// Course 课程
// swagger:model Course
type Course struct {
	BaseModel
	Title          string   `gorm:"size:255;not null" json:"title"`
	// 可空：未设置slug的课程存NULL，不占用唯一索引
	Slug           *string  `gorm:"size:255;uniqueIndex" json:"slug,omitempty"`
	Description    string   `gorm:"type:text" json:"description"`
	CoverURL       string   `gorm:"size:255" json:"coverUrl"`
	PriceAmount    int64    `gorm:"default:0" json:"priceAmount"` // 最小货币单位（分）
	PriceCurrency  string   `gorm:"size:3;default:'EUR'" json:"priceCurrency"`
	Published      bool     `gorm:"default:false;index" json:"published"`
	IsStartupAward bool     `gorm:"default:false" json:"isStartupAward"` // 是否属于创业奖计划
	Lessons        []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Enrollment 用户选课记录
type Enrollment struct {
	BaseModel
	UserID   uint   `gorm:"index:idx_user_course_enroll,unique" json:"userId"`
	CourseID uint   `gorm:"index:idx_user_course_enroll,unique" json:"courseId"`
	Status   string `gorm:"size:20;default:'enrolled'" json:"status"`
	Course   Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
