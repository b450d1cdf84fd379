package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

// CourseService 课程树的编辑与查询
// 所有结构性修改与该课程全部学生进度的同步在同一事务内完成
type CourseService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	Progress     *ProgressService
	Cache        *CourseCache
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	progress *ProgressService,
	cache *CourseCache,
) *CourseService {
	return &CourseService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		Progress:     progress,
		Cache:        cache,
	}
}

type CourseInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	IsPublished bool   `json:"isPublished"`
}

type SubCourseInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type LevelInput struct {
	SubCourseID *uint  `json:"subCourseId"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type ModuleInput struct {
	LevelID        uint               `json:"levelId"`
	Title          string             `json:"title" binding:"required"`
	Type           model.ModuleType   `json:"type" binding:"required"`
	ResourceKind   model.ResourceKind `json:"resourceKind"`
	ResourceURL    string             `json:"resourceUrl"`
	Body           string             `json:"body"`
	VideoSeconds   int                `json:"videoSeconds" binding:"min=0"`
	Prompt         string             `json:"prompt"`
	StarterCode    string             `json:"starterCode"`
	Language       string             `json:"language"`
	ExpectedOutput string             `json:"expectedOutput"`
}

// validate 资源模块必须指定合法的资源类别
func (in ModuleInput) validate() error {
	if !in.Type.Valid() {
		return util.ErrInvalidModuleType
	}
	if in.Type == model.ModuleResource && !in.ResourceKind.Valid() {
		return util.ErrInvalidResourceKind
	}
	return nil
}

func (in ModuleInput) apply(m *model.Module) {
	m.Title = strings.TrimSpace(in.Title)
	m.Type = in.Type
	m.ResourceKind = in.ResourceKind
	m.ResourceURL = in.ResourceURL
	m.Body = in.Body
	m.VideoSeconds = in.VideoSeconds
	m.Prompt = in.Prompt
	m.StarterCode = in.StarterCode
	m.Language = in.Language
	m.ExpectedOutput = in.ExpectedOutput
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// structural 在事务中执行课程结构修改，随后同步进度并清除缓存
func (s *CourseService) structural(ctx context.Context, courseID uint, fn func(repo *repository.CourseRepository) error) error {
	err := s.CourseRepo.DB.Transaction(func(tx *gorm.DB) error {
		catalog := s.CourseRepo.WithTx(tx)
		if err := fn(catalog); err != nil {
			return err
		}
		_, err := s.Progress.syncCourse(s.ProgressRepo.WithTx(tx), catalog, courseID)
		return err
	})
	s.Cache.Invalidate(ctx, courseID)
	return err
}

// ---- courses ----

// List 学生仅能看到已发布课程
func (s *CourseService) List(includeDrafts bool) ([]repository.CourseSummary, error) {
	return s.CourseRepo.List(!includeDrafts)
}

// GetTree 读取完整课程树，未发布课程对学生不可见
func (s *CourseService) GetTree(ctx context.Context, id uint, includeDrafts bool) (*model.Course, error) {
	version := s.Cache.Version(ctx, id)
	course, ok := s.Cache.Get(ctx, id, version)
	if !ok {
		var err error
		course, err = s.CourseRepo.FindTree(id)
		if err != nil {
			return nil, notFound(err, util.ErrCourseNotFound)
		}
		s.Cache.Set(ctx, course, version)
	}
	if !course.IsPublished && !includeDrafts {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

func (s *CourseService) findCourse(id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	return course, nil
}

func (s *CourseService) CreateCourse(creatorID uint, in CourseInput) (*model.Course, error) {
	course := &model.Course{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
		IsPublished: in.IsPublished,
		CreatorID:   creatorID,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, id uint, in CourseInput) (*model.Course, error) {
	course, err := s.findCourse(id)
	if err != nil {
		return nil, err
	}
	course.Title = strings.TrimSpace(in.Title)
	course.Description = in.Description
	course.Thumbnail = in.Thumbnail
	course.IsPublished = in.IsPublished
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, id)
	return course, nil
}

func (s *CourseService) SetPublished(ctx context.Context, id uint, published bool) (*model.Course, error) {
	course, err := s.findCourse(id)
	if err != nil {
		return nil, err
	}
	course.IsPublished = published
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, id)
	return course, nil
}

// DeleteCourse 级联删除子课程、关卡、模块、测验和学生进度
func (s *CourseService) DeleteCourse(ctx context.Context, id uint) error {
	if _, err := s.findCourse(id); err != nil {
		return err
	}
	if err := s.CourseRepo.Delete(id); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, id)
	return nil
}

// SyncProgress 手动触发课程下所有进度的同步
func (s *CourseService) SyncProgress(courseID uint) (int, error) {
	return s.Progress.SyncCourse(courseID)
}

// ---- ordering helpers ----

// checkPermutation ordered 必须恰好是当前子项 ID 的一个排列
func checkPermutation(current []uint, ordered []uint) error {
	if len(current) != len(ordered) {
		return util.ErrInvalidOrder
	}
	remaining := make(map[uint]bool, len(current))
	for _, id := range current {
		remaining[id] = true
	}
	for _, id := range ordered {
		if !remaining[id] {
			return util.ErrInvalidOrder
		}
		delete(remaining, id)
	}
	return nil
}

func without(ids []uint, id uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// insertAt index 超出范围时截断到 [0, len(ids)]
func insertAt(ids []uint, id uint, index int) []uint {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]uint, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	return append(out, ids[index:]...)
}

func sameParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func subCourseIDs(items []model.SubCourse) []uint {
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func levelIDs(items []model.Level) []uint {
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func moduleIDs(items []model.Module) []uint {
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

// ---- sub-courses ----

func (s *CourseService) AddSubCourse(ctx context.Context, courseID uint, in SubCourseInput) (*model.SubCourse, error) {
	if _, err := s.findCourse(courseID); err != nil {
		return nil, err
	}
	sc := &model.SubCourse{CourseID: courseID, Title: strings.TrimSpace(in.Title), Description: in.Description}
	err := s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		n, err := repo.CountSubCourses(courseID)
		if err != nil {
			return err
		}
		sc.Order = int(n)
		return repo.CreateSubCourse(sc)
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *CourseService) UpdateSubCourse(ctx context.Context, courseID, id uint, in SubCourseInput) (*model.SubCourse, error) {
	sc, err := s.CourseRepo.FindSubCourse(courseID, id)
	if err != nil {
		return nil, notFound(err, util.ErrSubCourseNotFound)
	}
	sc.Title = strings.TrimSpace(in.Title)
	sc.Description = in.Description
	if err := s.CourseRepo.UpdateSubCourse(sc); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, courseID)
	return sc, nil
}

// DeleteSubCourse 仍有关卡时需 force 才会级联删除
func (s *CourseService) DeleteSubCourse(ctx context.Context, courseID, id uint, force bool) error {
	if _, err := s.CourseRepo.FindSubCourse(courseID, id); err != nil {
		return notFound(err, util.ErrSubCourseNotFound)
	}
	return s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		n, err := repo.CountLevelsInSubCourse(id)
		if err != nil {
			return err
		}
		if n > 0 && !force {
			return util.ErrHasChildren
		}
		if err := repo.DeleteSubCourse(id); err != nil {
			return err
		}
		rest, err := repo.ListSubCourses(courseID)
		if err != nil {
			return err
		}
		return repo.SetPositions(&model.SubCourse{}, subCourseIDs(rest))
	})
}

func (s *CourseService) ReorderSubCourses(ctx context.Context, courseID uint, ordered []uint) ([]model.SubCourse, error) {
	if _, err := s.findCourse(courseID); err != nil {
		return nil, err
	}
	var items []model.SubCourse
	err := s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		current, err := repo.ListSubCourses(courseID)
		if err != nil {
			return err
		}
		if err := checkPermutation(subCourseIDs(current), ordered); err != nil {
			return err
		}
		if err := repo.SetPositions(&model.SubCourse{}, ordered); err != nil {
			return err
		}
		items, err = repo.ListSubCourses(courseID)
		return err
	})
	return items, err
}

// ---- levels ----

func (s *CourseService) checkSubCourse(repo *repository.CourseRepository, courseID uint, subCourseID *uint) error {
	if subCourseID == nil {
		return nil
	}
	_, err := repo.FindSubCourse(courseID, *subCourseID)
	return notFound(err, util.ErrSubCourseNotFound)
}

// AddLevel subCourseId 为空时作为旧版平铺关卡挂在课程下
func (s *CourseService) AddLevel(ctx context.Context, courseID uint, in LevelInput) (*model.Level, error) {
	if _, err := s.findCourse(courseID); err != nil {
		return nil, err
	}
	level := &model.Level{
		CourseID:    courseID,
		SubCourseID: in.SubCourseID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
	}
	err := s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		if err := s.checkSubCourse(repo, courseID, in.SubCourseID); err != nil {
			return err
		}
		siblings, err := repo.ListLevels(courseID, in.SubCourseID)
		if err != nil {
			return err
		}
		level.Order = len(siblings)
		return repo.CreateLevel(level)
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

func (s *CourseService) UpdateLevel(ctx context.Context, courseID, id uint, in LevelInput) (*model.Level, error) {
	level, err := s.CourseRepo.FindLevel(courseID, id)
	if err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}
	level.Title = strings.TrimSpace(in.Title)
	level.Description = in.Description
	if err := s.CourseRepo.UpdateLevel(level); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, courseID)
	return level, nil
}

func (s *CourseService) DeleteLevel(ctx context.Context, courseID, id uint, force bool) error {
	level, err := s.CourseRepo.FindLevel(courseID, id)
	if err != nil {
		return notFound(err, util.ErrLevelNotFound)
	}
	return s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		n, err := repo.CountModules(id)
		if err != nil {
			return err
		}
		if n > 0 && !force {
			return util.ErrHasChildren
		}
		if err := repo.DeleteLevel(id); err != nil {
			return err
		}
		rest, err := repo.ListLevels(courseID, level.SubCourseID)
		if err != nil {
			return err
		}
		return repo.SetPositions(&model.Level{}, levelIDs(rest))
	})
}

func (s *CourseService) ReorderLevels(ctx context.Context, courseID uint, subCourseID *uint, ordered []uint) ([]model.Level, error) {
	if _, err := s.findCourse(courseID); err != nil {
		return nil, err
	}
	var items []model.Level
	err := s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		if err := s.checkSubCourse(repo, courseID, subCourseID); err != nil {
			return err
		}
		current, err := repo.ListLevels(courseID, subCourseID)
		if err != nil {
			return err
		}
		if err := checkPermutation(levelIDs(current), ordered); err != nil {
			return err
		}
		if err := repo.SetPositions(&model.Level{}, ordered); err != nil {
			return err
		}
		items, err = repo.ListLevels(courseID, subCourseID)
		return err
	})
	return items, err
}

// MoveLevel 将关卡移动到目标子课程（为空表示课程根部）的 index 位置，两侧重新连续编号
func (s *CourseService) MoveLevel(ctx context.Context, courseID, levelID uint, target *uint, index int) (*model.Level, error) {
	level, err := s.CourseRepo.FindLevel(courseID, levelID)
	if err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}
	err = s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		if err := s.checkSubCourse(repo, courseID, target); err != nil {
			return err
		}
		source, err := repo.ListLevels(courseID, level.SubCourseID)
		if err != nil {
			return err
		}
		targetItems := source
		if !sameParent(level.SubCourseID, target) {
			if targetItems, err = repo.ListLevels(courseID, target); err != nil {
				return err
			}
			if err := repo.MoveLevelTo(levelID, target); err != nil {
				return err
			}
			if err := repo.SetPositions(&model.Level{}, without(levelIDs(source), levelID)); err != nil {
				return err
			}
		}
		ordered := insertAt(without(levelIDs(targetItems), levelID), levelID, index)
		if err := repo.SetPositions(&model.Level{}, ordered); err != nil {
			return err
		}
		level, err = repo.FindLevel(courseID, levelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

// ---- modules ----

func (s *CourseService) AddModule(ctx context.Context, courseID uint, in ModuleInput) (*model.Module, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.CourseRepo.FindLevel(courseID, in.LevelID); err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}

	module := &model.Module{CourseID: courseID, LevelID: in.LevelID}
	in.apply(module)
	err := s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		n, err := repo.CountModules(in.LevelID)
		if err != nil {
			return err
		}
		module.Order = int(n)
		return repo.CreateModule(module)
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}

// UpdateModule 不改变模块位置；类型由测验改为其他类型时删除原测验
func (s *CourseService) UpdateModule(ctx context.Context, courseID, id uint, in ModuleInput) (*model.Module, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	module, err := s.CourseRepo.FindModule(courseID, id)
	if err != nil {
		return nil, notFound(err, util.ErrModuleNotFound)
	}

	wasQuiz := module.Type == model.ModuleQuiz
	in.apply(module)
	err = s.CourseRepo.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.CourseRepo.WithTx(tx)
		if err := repo.UpdateModule(module); err != nil {
			return err
		}
		if wasQuiz && module.Type != model.ModuleQuiz {
			return repository.NewQuizRepository(tx).DeleteByModule(module.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, courseID)
	return module, nil
}

func (s *CourseService) DeleteModule(ctx context.Context, courseID, id uint) error {
	module, err := s.CourseRepo.FindModule(courseID, id)
	if err != nil {
		return notFound(err, util.ErrModuleNotFound)
	}
	return s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		if err := repo.DeleteModule(id); err != nil {
			return err
		}
		rest, err := repo.ListModules(module.LevelID)
		if err != nil {
			return err
		}
		return repo.SetPositions(&model.Module{}, moduleIDs(rest))
	})
}

func (s *CourseService) ReorderModules(ctx context.Context, courseID, levelID uint, ordered []uint) ([]model.Module, error) {
	if _, err := s.CourseRepo.FindLevel(courseID, levelID); err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}
	var items []model.Module
	err := s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		current, err := repo.ListModules(levelID)
		if err != nil {
			return err
		}
		if err := checkPermutation(moduleIDs(current), ordered); err != nil {
			return err
		}
		if err := repo.SetPositions(&model.Module{}, ordered); err != nil {
			return err
		}
		items, err = repo.ListModules(levelID)
		return err
	})
	return items, err
}

// MoveModule 将模块移动到目标关卡的 index 位置
func (s *CourseService) MoveModule(ctx context.Context, courseID, moduleID, targetLevelID uint, index int) (*model.Module, error) {
	module, err := s.CourseRepo.FindModule(courseID, moduleID)
	if err != nil {
		return nil, notFound(err, util.ErrModuleNotFound)
	}
	if _, err := s.CourseRepo.FindLevel(courseID, targetLevelID); err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}

	err = s.structural(ctx, courseID, func(repo *repository.CourseRepository) error {
		source, err := repo.ListModules(module.LevelID)
		if err != nil {
			return err
		}
		targetItems := source
		if module.LevelID != targetLevelID {
			if targetItems, err = repo.ListModules(targetLevelID); err != nil {
				return err
			}
			if err := repo.MoveModuleTo(moduleID, targetLevelID); err != nil {
				return err
			}
			if err := repo.SetPositions(&model.Module{}, without(moduleIDs(source), moduleID)); err != nil {
				return err
			}
		}
		ordered := insertAt(without(moduleIDs(targetItems), moduleID), moduleID, index)
		if err := repo.SetPositions(&model.Module{}, ordered); err != nil {
			return err
		}
		module, err = repo.FindModule(courseID, moduleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}
