package service

import (
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService 维护学生在课程中的学习进度
// 进度树与课程树按 LevelID/ModuleID 一一对应，任何读写前都会先与最新课程结构对齐
type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
	UserRepo     *repository.UserRepository
	Policy       *QuizPolicy
	Now          func() time.Time
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	policy *QuizPolicy,
) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
		UserRepo:     userRepo,
		Policy:       policy,
		Now:          time.Now,
	}
}

// ProgressSummary 进度列表项
type ProgressSummary struct {
	ProgressID       uint       `json:"progressId"`
	CourseID         uint       `json:"courseId"`
	CourseTitle      string     `json:"courseTitle"`
	StudentID        uint       `json:"studentId"`
	StudentName      string     `json:"studentName,omitempty"`
	StudentEmail     string     `json:"studentEmail,omitempty"`
	EnrolledAt       time.Time  `json:"enrolledAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CompletedModules int        `json:"completedModules"`
	TotalModules     int        `json:"totalModules"`
	Percentage       float64    `json:"percentage"`
}

type ModuleProgressView struct {
	ModuleID       uint             `json:"moduleId"`
	Title          string           `json:"title"`
	Type           model.ModuleType `json:"type"`
	Unlocked       bool             `json:"unlocked"`
	Completed      bool             `json:"completed"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
	QuizScore      *float64         `json:"quizScore,omitempty"`
	QuizPassed     bool             `json:"quizPassed"`
	QuizAttempts   int              `json:"quizAttempts"`
	LastAttemptAt  *time.Time       `json:"lastAttemptAt,omitempty"`
	WatchedSeconds int              `json:"watchedSeconds"`
}

type LevelProgressView struct {
	LevelID     uint                 `json:"levelId"`
	SubCourseID *uint                `json:"subCourseId"`
	Title       string               `json:"title"`
	Completed   bool                 `json:"completed"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
	Modules     []ModuleProgressView `json:"modules"`
}

// ProgressView 学生视角的完整进度树
type ProgressView struct {
	ProgressSummary
	NextModuleID *uint               `json:"nextModuleId,omitempty"`
	Levels       []LevelProgressView `json:"levels"`
}

func percentage(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return util.Round2(float64(done) / float64(total) * 100)
}

func summarize(p *model.Progress, courseTitle string) ProgressSummary {
	done, total := p.CompletedModules()
	return ProgressSummary{
		ProgressID:       p.ID,
		CourseID:         p.CourseID,
		CourseTitle:      courseTitle,
		StudentID:        p.StudentID,
		EnrolledAt:       p.EnrolledAt,
		CompletedAt:      p.CompletedAt,
		CompletedModules: done,
		TotalModules:     total,
		Percentage:       percentage(done, total),
	}
}

// transaction 在同一事务中提供进度与课程仓库
func (s *ProgressService) transaction(fn func(progress *repository.ProgressRepository, catalog *repository.CourseRepository) error) error {
	return s.ProgressRepo.DB.Transaction(func(tx *gorm.DB) error {
		return fn(s.ProgressRepo.WithTx(tx), s.CourseRepo.WithTx(tx))
	})
}

func findTree(catalog *repository.CourseRepository, courseID uint) (*model.Course, error) {
	course, err := catalog.FindTree(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

// buildLevels 按课程当前结构生成空白进度条目
func buildLevels(course *model.Course) []model.ProgressLevel {
	var levels []model.ProgressLevel
	for _, lvl := range course.OrderedLevels() {
		pl := model.ProgressLevel{LevelID: lvl.ID}
		for _, m := range lvl.Modules {
			pl.Modules = append(pl.Modules, model.ProgressModule{ModuleID: m.ID})
		}
		levels = append(levels, pl)
	}
	return levels
}

// loadSynced 读取课程树与学生进度，并把进度对齐到当前课程结构
func (s *ProgressService) loadSynced(progress *repository.ProgressRepository, catalog *repository.CourseRepository, studentID, courseID uint) (*model.Course, *model.Progress, error) {
	course, err := findTree(catalog, courseID)
	if err != nil {
		return nil, nil, err
	}
	p, err := progress.FindByStudentCourse(studentID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, util.ErrNotEnrolled
	} else if err != nil {
		return nil, nil, err
	}
	if err := s.reconcile(progress, p, course); err != nil {
		return nil, nil, err
	}
	return course, p, nil
}

// reconcile 补齐缺失条目、删除已移除的条目、保留已有完成状态，并按课程顺序重排内存中的进度树
func (s *ProgressService) reconcile(repo *repository.ProgressRepository, p *model.Progress, course *model.Course) error {
	levelEntries := make(map[uint]*model.ProgressLevel, len(p.Levels))
	moduleEntries := make(map[uint]*model.ProgressModule)
	for i := range p.Levels {
		pl := &p.Levels[i]
		levelEntries[pl.LevelID] = pl
		for j := range pl.Modules {
			moduleEntries[pl.Modules[j].ModuleID] = &pl.Modules[j]
		}
	}

	keepLevels := make(map[uint]bool)
	keepModules := make(map[uint]bool)
	synced := make([]model.ProgressLevel, 0, len(p.Levels))

	for _, lvl := range course.OrderedLevels() {
		keepLevels[lvl.ID] = true
		pl, ok := levelEntries[lvl.ID]
		if !ok {
			pl = &model.ProgressLevel{ProgressID: p.ID, LevelID: lvl.ID}
			if err := repo.CreateLevelEntry(pl); err != nil {
				return err
			}
		}

		modules := make([]model.ProgressModule, 0, len(lvl.Modules))
		for _, m := range lvl.Modules {
			keepModules[m.ID] = true
			pm, ok := moduleEntries[m.ID]
			switch {
			case !ok:
				pm = &model.ProgressModule{ProgressID: p.ID, ProgressLevelID: pl.ID, ModuleID: m.ID}
				if err := repo.CreateModuleEntry(pm); err != nil {
					return err
				}
			case pm.ProgressLevelID != pl.ID:
				// 模块被移动到其他关卡，沿用原有状态
				pm.ProgressLevelID = pl.ID
				if err := repo.SaveModule(pm); err != nil {
					return err
				}
			}
			modules = append(modules, *pm)
		}

		entry := *pl
		entry.Modules = modules
		synced = append(synced, entry)
	}

	var staleModules, staleLevels []uint
	for moduleID, pm := range moduleEntries {
		if !keepModules[moduleID] {
			staleModules = append(staleModules, pm.ID)
		}
	}
	for levelID, pl := range levelEntries {
		if !keepLevels[levelID] {
			staleLevels = append(staleLevels, pl.ID)
		}
	}
	if err := repo.DeleteModuleEntries(staleModules); err != nil {
		return err
	}
	if err := repo.DeleteLevelEntries(staleLevels); err != nil {
		return err
	}

	p.Levels = synced
	return s.refreshCompletion(repo, p)
}

// refreshCompletion 关卡在其全部模块完成时完成，课程在全部模块完成时完成
func (s *ProgressService) refreshCompletion(repo *repository.ProgressRepository, p *model.Progress) error {
	now := s.Now()
	for i := range p.Levels {
		pl := &p.Levels[i]
		complete := len(pl.Modules) > 0
		for _, pm := range pl.Modules {
			if !pm.Completed {
				complete = false
				break
			}
		}
		if complete == pl.Completed {
			continue
		}
		pl.Completed = complete
		if complete {
			pl.CompletedAt = &now
		} else {
			pl.CompletedAt = nil
		}
		if err := repo.SaveLevel(pl); err != nil {
			return err
		}
	}

	done, total := p.CompletedModules()
	complete := total > 0 && done == total
	switch {
	case complete && p.CompletedAt == nil:
		p.CompletedAt = &now
	case !complete && p.CompletedAt != nil:
		p.CompletedAt = nil
	default:
		return nil
	}
	return repo.SaveProgress(p)
}

// unlockedModules 模块仅在其之前（扁平顺序）的全部模块完成后解锁
func unlockedModules(course *model.Course, p *model.Progress) map[uint]bool {
	completed := make(map[uint]bool)
	for _, pl := range p.Levels {
		for _, pm := range pl.Modules {
			completed[pm.ModuleID] = pm.Completed
		}
	}

	unlocked := make(map[uint]bool)
	open := true
	for _, m := range course.OrderedModules() {
		unlocked[m.ID] = open
		if !completed[m.ID] {
			open = false
		}
	}
	return unlocked
}

func (s *ProgressService) buildView(course *model.Course, p *model.Progress) *ProgressView {
	view := &ProgressView{ProgressSummary: summarize(p, course.Title)}
	unlocked := unlockedModules(course, p)

	for _, lvl := range course.OrderedLevels() {
		lv := LevelProgressView{
			LevelID:     lvl.ID,
			SubCourseID: lvl.SubCourseID,
			Title:       lvl.Title,
			Modules:     []ModuleProgressView{},
		}
		for i := range p.Levels {
			if p.Levels[i].LevelID == lvl.ID {
				lv.Completed = p.Levels[i].Completed
				lv.CompletedAt = p.Levels[i].CompletedAt
				break
			}
		}
		for _, m := range lvl.Modules {
			mv := ModuleProgressView{ModuleID: m.ID, Title: m.Title, Type: m.Type, Unlocked: unlocked[m.ID]}
			if _, pm := p.FindModule(m.ID); pm != nil {
				mv.Completed = pm.Completed
				mv.CompletedAt = pm.CompletedAt
				mv.QuizScore = pm.QuizScore
				mv.QuizPassed = pm.QuizPassed
				mv.QuizAttempts = pm.QuizAttempts
				mv.LastAttemptAt = pm.LastAttemptAt
				mv.WatchedSeconds = pm.WatchedSeconds
			}
			if view.NextModuleID == nil && mv.Unlocked && !mv.Completed {
				id := m.ID
				view.NextModuleID = &id
			}
			lv.Modules = append(lv.Modules, mv)
		}
		view.Levels = append(view.Levels, lv)
	}
	if view.Levels == nil {
		view.Levels = []LevelProgressView{}
	}
	return view
}

// Enroll 报名已发布课程，并按当前课程结构初始化进度
func (s *ProgressService) Enroll(studentID, courseID uint) (*ProgressView, error) {
	var view *ProgressView
	err := s.transaction(func(progress *repository.ProgressRepository, catalog *repository.CourseRepository) error {
		course, err := findTree(catalog, courseID)
		if err != nil {
			return err
		}
		if !course.IsPublished {
			return util.ErrCourseNotPublished
		}

		exists, err := progress.Exists(studentID, courseID)
		if err != nil {
			return err
		}
		if exists {
			return util.ErrAlreadyEnrolled
		}

		p := &model.Progress{
			StudentID:  studentID,
			CourseID:   courseID,
			EnrolledAt: s.Now(),
			Levels:     buildLevels(course),
		}
		if err := progress.CreateTree(p); err != nil {
			return err
		}
		view = s.buildView(course, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.EnrollmentsTotal.Inc()
	return view, nil
}

func (s *ProgressService) ListMine(studentID uint) ([]ProgressSummary, error) {
	items, err := s.ProgressRepo.ListByStudent(studentID)
	if err != nil {
		return nil, err
	}

	out := make([]ProgressSummary, 0, len(items))
	for i := range items {
		course, err := s.CourseRepo.FindByID(items[i].CourseID)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(&items[i], course.Title))
	}
	return out, nil
}

func (s *ProgressService) Get(studentID, courseID uint) (*ProgressView, error) {
	var view *ProgressView
	err := s.transaction(func(progress *repository.ProgressRepository, catalog *repository.CourseRepository) error {
		course, p, err := s.loadSynced(progress, catalog, studentID, courseID)
		if err != nil {
			return err
		}
		view = s.buildView(course, p)
		return nil
	})
	return view, err
}

func (s *ProgressService) Unenroll(studentID, courseID uint) error {
	return s.transaction(func(progress *repository.ProgressRepository, _ *repository.CourseRepository) error {
		p, err := progress.FindByStudentCourse(studentID, courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotEnrolled
		} else if err != nil {
			return err
		}
		return progress.Delete(p.ID)
	})
}

// RecordWatch 记录视频观看时长，只保留最大值
func (s *ProgressService) RecordWatch(studentID, courseID, moduleID uint, seconds int) (*ModuleProgressView, error) {
	var view *ModuleProgressView
	err := s.transaction(func(progress *repository.ProgressRepository, catalog *repository.CourseRepository) error {
		course, p, err := s.loadSynced(progress, catalog, studentID, courseID)
		if err != nil {
			return err
		}
		module := course.FindModule(moduleID)
		if module == nil {
			return util.ErrModuleNotFound
		}
		if module.Type != model.ModuleResource || module.ResourceKind != model.ResourceVideo {
			return util.ErrNotVideoModule
		}
		unlocked := unlockedModules(course, p)
		if !unlocked[moduleID] {
			return util.ErrModuleLocked
		}

		_, pm := p.FindModule(moduleID)
		// 时长未知的视频不记录观看进度
		if seconds > module.VideoSeconds {
			seconds = module.VideoSeconds
		}
		if seconds > pm.WatchedSeconds {
			pm.WatchedSeconds = seconds
			if err := progress.SaveModule(pm); err != nil {
				return err
			}
		}

		view = &ModuleProgressView{
			ModuleID:       module.ID,
			Title:          module.Title,
			Type:           module.Type,
			Unlocked:       true,
			Completed:      pm.Completed,
			CompletedAt:    pm.CompletedAt,
			WatchedSeconds: pm.WatchedSeconds,
		}
		return nil
	})
	return view, err
}

// markComplete 标记模块完成并级联更新关卡、课程完成状态
func (s *ProgressService) markComplete(repo *repository.ProgressRepository, p *model.Progress, pm *model.ProgressModule) error {
	if pm.Completed {
		return nil
	}
	now := s.Now()
	pm.Completed = true
	pm.CompletedAt = &now
	if err := repo.SaveModule(pm); err != nil {
		return err
	}
	monitoring.ModuleCompletionsTotal.Inc()
	return s.refreshCompletion(repo, p)
}

// CompleteModule 完成资源/编程模块；测验模块只能通过提交测验完成
func (s *ProgressService) CompleteModule(studentID, courseID, moduleID uint) (*ProgressView, error) {
	var view *ProgressView
	err := s.transaction(func(progress *repository.ProgressRepository, catalog *repository.CourseRepository) error {
		course, p, err := s.loadSynced(progress, catalog, studentID, courseID)
		if err != nil {
			return err
		}
		module := course.FindModule(moduleID)
		if module == nil {
			return util.ErrModuleNotFound
		}

		_, pm := p.FindModule(moduleID)
		if !pm.Completed {
			if !unlockedModules(course, p)[moduleID] {
				return util.ErrModuleLocked
			}
			if module.Type == model.ModuleQuiz {
				return util.ErrQuizModule
			}
			if module.RequiresWatch() &&
				float64(pm.WatchedSeconds) < s.Policy.WatchRatio()*float64(module.VideoSeconds) {
				return util.ErrWatchIncomplete
			}
			if err := s.markComplete(progress, p, pm); err != nil {
				return err
			}
		}

		view = s.buildView(course, p)
		return nil
	})
	return view, err
}

// ListForCourse 管理员查看课程下所有学生进度
func (s *ProgressService) ListForCourse(courseID uint) ([]ProgressSummary, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	} else if err != nil {
		return nil, err
	}

	items, err := s.ProgressRepo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}

	out := make([]ProgressSummary, 0, len(items))
	for i := range items {
		summary := summarize(&items[i], course.Title)
		if user, err := s.UserRepo.FindByID(items[i].StudentID); err == nil {
			summary.StudentName = user.Name
			summary.StudentEmail = user.Email
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *ProgressService) GetForStudent(courseID, studentID uint) (*ProgressView, error) {
	view, err := s.Get(studentID, courseID)
	if err != nil {
		return nil, err
	}
	if user, err := s.UserRepo.FindByID(studentID); err == nil {
		view.StudentName = user.Name
		view.StudentEmail = user.Email
	}
	return view, nil
}

// Reset 清空学生在课程中的进度，保留报名时间
func (s *ProgressService) Reset(courseID, studentID uint) (*ProgressView, error) {
	var view *ProgressView
	err := s.transaction(func(progress *repository.ProgressRepository, catalog *repository.CourseRepository) error {
		course, err := findTree(catalog, courseID)
		if err != nil {
			return err
		}
		old, err := progress.FindByStudentCourse(studentID, courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotEnrolled
		} else if err != nil {
			return err
		}
		if err := progress.Delete(old.ID); err != nil {
			return err
		}

		p := &model.Progress{
			StudentID:  studentID,
			CourseID:   courseID,
			EnrolledAt: old.EnrolledAt,
			Levels:     buildLevels(course),
		}
		if err := progress.CreateTree(p); err != nil {
			return err
		}
		view = s.buildView(course, p)
		return nil
	})
	return view, err
}

// syncCourse 将课程下全部进度对齐到当前课程结构，返回处理的进度数
func (s *ProgressService) syncCourse(progress *repository.ProgressRepository, catalog *repository.CourseRepository, courseID uint) (int, error) {
	course, err := findTree(catalog, courseID)
	if err != nil {
		return 0, err
	}
	items, err := progress.ListByCourse(courseID)
	if err != nil {
		return 0, err
	}
	for i := range items {
		if err := s.reconcile(progress, &items[i], course); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

func (s *ProgressService) SyncCourse(courseID uint) (int, error) {
	var n int
	err := s.transaction(func(progress *repository.ProgressRepository, catalog *repository.CourseRepository) error {
		var err error
		n, err = s.syncCourse(progress, catalog, courseID)
		return err
	})
	return n, err
}

// SyncAll 定时任务入口，单个课程失败不影响其他课程
func (s *ProgressService) SyncAll() (int, error) {
	courseIDs, err := s.ProgressRepo.ListCourseIDs()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, courseID := range courseIDs {
		n, err := s.SyncCourse(courseID)
		if err != nil {
			logger.Log.Error("progress sync failed", zap.Uint("courseId", courseID), zap.Error(err))
			continue
		}
		total += n
	}
	logger.Log.Info("progress sync finished", zap.Int("courses", len(courseIDs)), zap.Int("progresses", total))
	return total, nil
}
