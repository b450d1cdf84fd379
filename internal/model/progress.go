package model

import "time"

// Progress 每个 (学生, 课程) 一条，镜像课程的关卡/模块结构
// swagger:model Progress
type Progress struct {
	BaseModel
	StudentID   uint            `gorm:"not null;uniqueIndex:idx_progress_student_course" json:"studentId"`
	CourseID    uint            `gorm:"not null;uniqueIndex:idx_progress_student_course;index" json:"courseId"`
	EnrolledAt  time.Time       `json:"enrolledAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Levels      []ProgressLevel `gorm:"foreignKey:ProgressID" json:"levels"`
}

func (Progress) TableName() string {
	return "progresses"
}

// swagger:model ProgressLevel
type ProgressLevel struct {
	BaseModel
	ProgressID  uint             `gorm:"index;not null" json:"-"`
	LevelID     uint             `gorm:"index;not null" json:"levelId"`
	Completed   bool             `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Modules     []ProgressModule `gorm:"foreignKey:ProgressLevelID" json:"modules"`
}

func (ProgressLevel) TableName() string {
	return "progress_levels"
}

// swagger:model ProgressModule
type ProgressModule struct {
	BaseModel
	ProgressID      uint       `gorm:"index;not null" json:"-"`
	ProgressLevelID uint       `gorm:"index;not null" json:"-"`
	ModuleID        uint       `gorm:"index;not null" json:"moduleId"`
	Completed       bool       `gorm:"default:false" json:"completed"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	QuizScore       *float64   `json:"quizScore,omitempty"`
	QuizPassed      bool       `gorm:"default:false" json:"quizPassed"`
	QuizAttempts    int        `gorm:"default:0" json:"quizAttempts"`
	LastAttemptAt   *time.Time `json:"lastAttemptAt,omitempty"`
	WatchedSeconds  int        `gorm:"default:0" json:"watchedSeconds"`
}

func (ProgressModule) TableName() string {
	return "progress_modules"
}

// FindModule 返回镜像树中对应模块的进度条目
func (p *Progress) FindModule(moduleID uint) (*ProgressLevel, *ProgressModule) {
	for i := range p.Levels {
		lvl := &p.Levels[i]
		for j := range lvl.Modules {
			if lvl.Modules[j].ModuleID == moduleID {
				return lvl, &lvl.Modules[j]
			}
		}
	}
	return nil, nil
}

func (p *Progress) CompletedModules() (done, total int) {
	for _, l := range p.Levels {
		for _, m := range l.Modules {
			total++
			if m.Completed {
				done++
			}
		}
	}
	return done, total
}
