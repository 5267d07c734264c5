package model

// Lesson 课程下的单节课
// 解锁顺序由Order字段决定：第N节课只有在第N-1节课完成后才可访问。
// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID      uint    `gorm:"index;not null" json:"courseId"`
	Title         string  `gorm:"size:255;not null" json:"title"`
	Description   string  `gorm:"type:text" json:"description"`
	Order         int     `gorm:"column:sort_order;not null;default:0;index" json:"order"`
	VideoURL      string  `gorm:"size:255" json:"videoUrl"`
	VideoDuration float64 `gorm:"default:0" json:"videoDuration"` // 秒，上传时由ffmpeg探测
	Content       string  `gorm:"type:text" json:"content"`
}

func (Lesson) TableName() string {
	return "lessons"
}
