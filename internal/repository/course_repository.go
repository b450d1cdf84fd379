package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func rootLevels(db *gorm.DB) *gorm.DB {
	return db.Where("sub_course_id IS NULL").Order("position ASC, id ASC")
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Omit(clause.Associations).Create(course).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Omit(clause.Associations).Save(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

// FindTree 加载完整课程树，各层按 position 排序
func (r *CourseRepository) FindTree(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("SubCourses", byPosition).
		Preload("SubCourses.Levels", byPosition).
		Preload("SubCourses.Levels.Modules", byPosition).
		Preload("Levels", rootLevels).
		Preload("Levels.Modules", byPosition).
		First(&course, id).Error
	return &course, err
}

// CourseSummary 列表页使用的课程概要
type CourseSummary struct {
	model.Course
	ModuleCount int64 `json:"moduleCount"`
}

func (r *CourseRepository) List(publishedOnly bool) ([]CourseSummary, error) {
	var courses []model.Course
	query := r.DB.Model(&model.Course{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return []CourseSummary{}, nil
	}

	ids := make([]uint, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	var counts []struct {
		CourseID uint
		Total    int64
	}
	err := r.DB.Model(&model.Module{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	countMap := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countMap[c.CourseID] = c.Total
	}

	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, CourseSummary{Course: c, ModuleCount: countMap[c.ID]})
	}
	return out, nil
}

// Delete 级联删除课程树、测验及学生进度
func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		quizIDs := tx.Model(&model.Quiz{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("quiz_id IN (?)", quizIDs).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Quiz{}).Error; err != nil {
			return err
		}
		progressIDs := tx.Model(&model.Progress{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("progress_id IN (?)", progressIDs).Delete(&model.ProgressModule{}).Error; err != nil {
			return err
		}
		if err := tx.Where("progress_id IN (?)", progressIDs).Delete(&model.ProgressLevel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Progress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Module{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Level{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.SubCourse{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

// ---- sub-courses ----

func (r *CourseRepository) CreateSubCourse(sc *model.SubCourse) error {
	return r.DB.Omit(clause.Associations).Create(sc).Error
}

func (r *CourseRepository) UpdateSubCourse(sc *model.SubCourse) error {
	return r.DB.Omit(clause.Associations).Save(sc).Error
}

func (r *CourseRepository) FindSubCourse(courseID, id uint) (*model.SubCourse, error) {
	var sc model.SubCourse
	err := r.DB.Where("course_id = ?", courseID).First(&sc, id).Error
	return &sc, err
}

func (r *CourseRepository) ListSubCourses(courseID uint) ([]model.SubCourse, error) {
	var items []model.SubCourse
	err := byPosition(r.DB.Where("course_id = ?", courseID)).Find(&items).Error
	return items, err
}

func (r *CourseRepository) CountSubCourses(courseID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.SubCourse{}).Where("course_id = ?", courseID).Count(&n).Error
	return n, err
}

func (r *CourseRepository) DeleteSubCourse(id uint) error {
	levelIDs := r.DB.Model(&model.Level{}).Select("id").Where("sub_course_id = ?", id)
	if err := r.deleteModulesWhere("level_id IN (?)", levelIDs); err != nil {
		return err
	}
	if err := r.DB.Where("sub_course_id = ?", id).Delete(&model.Level{}).Error; err != nil {
		return err
	}
	return r.DB.Delete(&model.SubCourse{}, id).Error
}

// ---- levels ----

func (r *CourseRepository) CreateLevel(level *model.Level) error {
	return r.DB.Omit(clause.Associations).Create(level).Error
}

func (r *CourseRepository) UpdateLevel(level *model.Level) error {
	return r.DB.Omit(clause.Associations).Save(level).Error
}

func (r *CourseRepository) FindLevel(courseID, id uint) (*model.Level, error) {
	var level model.Level
	err := r.DB.Where("course_id = ?", courseID).First(&level, id).Error
	return &level, err
}

// ListLevels subCourseID 为空时返回旧版平铺关卡
func (r *CourseRepository) ListLevels(courseID uint, subCourseID *uint) ([]model.Level, error) {
	var items []model.Level
	query := r.DB.Where("course_id = ?", courseID)
	if subCourseID == nil {
		query = query.Where("sub_course_id IS NULL")
	} else {
		query = query.Where("sub_course_id = ?", *subCourseID)
	}
	err := byPosition(query).Find(&items).Error
	return items, err
}

func (r *CourseRepository) CountLevelsInSubCourse(subCourseID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Level{}).Where("sub_course_id = ?", subCourseID).Count(&n).Error
	return n, err
}

func (r *CourseRepository) DeleteLevel(id uint) error {
	if err := r.deleteModulesWhere("level_id = ?", id); err != nil {
		return err
	}
	return r.DB.Delete(&model.Level{}, id).Error
}

// ---- modules ----

func (r *CourseRepository) CreateModule(m *model.Module) error {
	return r.DB.Create(m).Error
}

func (r *CourseRepository) UpdateModule(m *model.Module) error {
	return r.DB.Save(m).Error
}

func (r *CourseRepository) FindModule(courseID, id uint) (*model.Module, error) {
	var m model.Module
	err := r.DB.Where("course_id = ?", courseID).First(&m, id).Error
	return &m, err
}

func (r *CourseRepository) ListModules(levelID uint) ([]model.Module, error) {
	var items []model.Module
	err := byPosition(r.DB.Where("level_id = ?", levelID)).Find(&items).Error
	return items, err
}

func (r *CourseRepository) CountModules(levelID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Module{}).Where("level_id = ?", levelID).Count(&n).Error
	return n, err
}

func (r *CourseRepository) DeleteModule(id uint) error {
	return r.deleteModulesWhere("id = ?", id)
}

// deleteModulesWhere 删除模块及其测验
func (r *CourseRepository) deleteModulesWhere(query string, args ...interface{}) error {
	moduleIDs := r.DB.Model(&model.Module{}).Select("id").Where(query, args...)
	quizIDs := r.DB.Model(&model.Quiz{}).Select("id").Where("module_id IN (?)", moduleIDs)
	if err := r.DB.Where("quiz_id IN (?)", quizIDs).Delete(&model.QuizQuestion{}).Error; err != nil {
		return err
	}
	if err := r.DB.Where("module_id IN (?)", moduleIDs).Delete(&model.Quiz{}).Error; err != nil {
		return err
	}
	return r.DB.Where(query, args...).Delete(&model.Module{}).Error
}

// ---- ordering ----

// SetPositions 按给定顺序重写 position，ids[i] 的 position 为 i
func (r *CourseRepository) SetPositions(table interface{}, ids []uint) error {
	for i, id := range ids {
		if err := r.DB.Model(table).Where("id = ?", id).Update("position", i).Error; err != nil {
			return err
		}
	}
	return nil
}

// MoveLevelTo 修改关卡所属子课程
func (r *CourseRepository) MoveLevelTo(levelID uint, subCourseID *uint) error {
	return r.DB.Model(&model.Level{}).Where("id = ?", levelID).Update("sub_course_id", subCourseID).Error
}

// MoveModuleTo 修改模块所属关卡，同步更新测验的 level_id
func (r *CourseRepository) MoveModuleTo(moduleID, levelID uint) error {
	if err := r.DB.Model(&model.Module{}).Where("id = ?", moduleID).Update("level_id", levelID).Error; err != nil {
		return err
	}
	return r.DB.Model(&model.Quiz{}).Where("module_id = ?", moduleID).Update("level_id", levelID).Error
}
