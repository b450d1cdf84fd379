package model

type ModuleType string

const (
	ModuleResource ModuleType = "resource"
	ModuleQuiz     ModuleType = "quiz"
	ModuleCoding   ModuleType = "coding"
)

func (t ModuleType) Valid() bool {
	return t == ModuleResource || t == ModuleQuiz || t == ModuleCoding
}

type ResourceKind string

const (
	ResourceVideo ResourceKind = "video"
	ResourcePDF   ResourceKind = "pdf"
	ResourceLink  ResourceKind = "link"
	ResourceText  ResourceKind = "text"
)

func (k ResourceKind) Valid() bool {
	return k == ResourceVideo || k == ResourcePDF || k == ResourceLink || k == ResourceText
}

// swagger:model Course
type Course struct {
	BaseModel
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Thumbnail   string      `gorm:"size:512" json:"thumbnail"`
	IsPublished bool        `gorm:"default:false;index" json:"isPublished"`
	CreatorID   uint        `gorm:"index" json:"creatorId"`
	SubCourses  []SubCourse `gorm:"foreignKey:CourseID" json:"subCourses"`
	// Levels 仅包含未归属任何子课程的旧版平铺关卡
	Levels []Level `gorm:"foreignKey:CourseID" json:"levels"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model SubCourse
type SubCourse struct {
	BaseModel
	CourseID    uint    `gorm:"index;not null" json:"courseId"`
	Title       string  `gorm:"size:255;not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Order       int     `gorm:"column:position;default:0" json:"order"`
	Levels      []Level `gorm:"foreignKey:SubCourseID" json:"levels"`
}

func (SubCourse) TableName() string {
	return "sub_courses"
}

// swagger:model Level
type Level struct {
	BaseModel
	CourseID    uint     `gorm:"index;not null" json:"courseId"`
	SubCourseID *uint    `gorm:"index" json:"subCourseId"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Order       int      `gorm:"column:position;default:0" json:"order"`
	Modules     []Module `gorm:"foreignKey:LevelID" json:"modules"`
}

func (Level) TableName() string {
	return "levels"
}

// swagger:model Module
type Module struct {
	BaseModel
	CourseID uint       `gorm:"index;not null" json:"courseId"`
	LevelID  uint       `gorm:"index;not null" json:"levelId"`
	Title    string     `gorm:"size:255;not null" json:"title"`
	Type     ModuleType `gorm:"size:20;not null" json:"type"`
	Order    int        `gorm:"column:position;default:0" json:"order"`

	// resource
	ResourceKind ResourceKind `gorm:"size:20" json:"resourceKind,omitempty"`
	ResourceURL  string       `gorm:"size:1024" json:"resourceUrl,omitempty"`
	Body         string       `gorm:"type:text" json:"body,omitempty"`
	VideoSeconds int          `gorm:"default:0" json:"videoSeconds,omitempty"`

	// coding
	Prompt         string `gorm:"type:text" json:"prompt,omitempty"`
	StarterCode    string `gorm:"type:text" json:"starterCode,omitempty"`
	Language       string `gorm:"size:50" json:"language,omitempty"`
	ExpectedOutput string `gorm:"type:text" json:"expectedOutput,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

// RequiresWatch 视频资源需达到观看时长才可完成
func (m *Module) RequiresWatch() bool {
	return m.Type == ModuleResource && m.ResourceKind == ResourceVideo && m.VideoSeconds > 0
}

// OrderedLevels 按学习顺序展开课程下所有关卡：先旧版平铺关卡，再按子课程顺序
func (c *Course) OrderedLevels() []*Level {
	var out []*Level
	for i := range c.Levels {
		out = append(out, &c.Levels[i])
	}
	for i := range c.SubCourses {
		for j := range c.SubCourses[i].Levels {
			out = append(out, &c.SubCourses[i].Levels[j])
		}
	}
	return out
}

// OrderedModules 按解锁顺序展开所有模块
func (c *Course) OrderedModules() []*Module {
	var out []*Module
	for _, lvl := range c.OrderedLevels() {
		for i := range lvl.Modules {
			out = append(out, &lvl.Modules[i])
		}
	}
	return out
}

// FindModule 在已加载的课程树中查找模块
func (c *Course) FindModule(moduleID uint) *Module {
	for _, m := range c.OrderedModules() {
		if m.ID == moduleID {
			return m
		}
	}
	return nil
}

func (c *Course) FindLevel(levelID uint) *Level {
	for _, l := range c.OrderedLevels() {
		if l.ID == levelID {
			return l
		}
	}
	return nil
}
