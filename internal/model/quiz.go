package model

// Quiz 课节测验
// swagger:model Quiz
type Quiz struct {
	BaseModel
	LessonID     uint           `gorm:"index;not null" json:"lessonId"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	PassingScore int            `gorm:"default:60" json:"passingScore"` // 百分制及格线
	Questions    []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion 测验题目，单选
type QuizQuestion struct {
	BaseModel
	QuizID       uint   `gorm:"index;not null" json:"quizId"`
	Text         string `gorm:"type:text;not null" json:"text"`
	OptionsJSON  string `gorm:"type:text" json:"optionsJson"` // 选项数组的JSON
	CorrectIndex int    `gorm:"not null" json:"-"`            // 不下发给学生
	Order        int    `gorm:"column:sort_order;default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
