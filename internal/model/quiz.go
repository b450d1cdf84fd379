package model

// swagger:model Quiz
type Quiz struct {
	BaseModel
	CourseID  uint           `gorm:"index;not null" json:"courseId"`
	LevelID   uint           `gorm:"index;not null" json:"levelId"`
	ModuleID  uint           `gorm:"uniqueIndex;not null" json:"moduleId"`
	Title     string         `gorm:"size:255" json:"title"`
	Questions []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID        uint     `gorm:"index;not null" json:"-"`
	Prompt        string   `gorm:"type:text;not null" json:"prompt"`
	Options       []string `gorm:"serializer:json;type:text" json:"options"`
	CorrectAnswer string   `gorm:"size:1024;not null" json:"correctAnswer,omitempty"`
	Order         int      `gorm:"column:position;default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
