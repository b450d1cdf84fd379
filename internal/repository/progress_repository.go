package repository

import (
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) withTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Levels", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Levels.Modules", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// CreateTree 写入进度及其关卡/模块镜像条目
// 并发报名时唯一索引冲突视为已报名
func (r *ProgressRepository) CreateTree(p *model.Progress) error {
	if err := r.DB.Omit(clause.Associations).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return util.ErrAlreadyEnrolled
		}
		return err
	}
	for i := range p.Levels {
		p.Levels[i].ProgressID = p.ID
		if err := r.CreateLevelEntry(&p.Levels[i]); err != nil {
			return err
		}
	}
	return nil
}

// CreateLevelEntry 写入关卡条目及其下模块条目
func (r *ProgressRepository) CreateLevelEntry(pl *model.ProgressLevel) error {
	if err := r.DB.Omit(clause.Associations).Create(pl).Error; err != nil {
		return err
	}
	for j := range pl.Modules {
		pl.Modules[j].ProgressID = pl.ProgressID
		pl.Modules[j].ProgressLevelID = pl.ID
	}
	if len(pl.Modules) == 0 {
		return nil
	}
	return r.DB.Create(&pl.Modules).Error
}

func (r *ProgressRepository) CreateModuleEntry(pm *model.ProgressModule) error {
	return r.DB.Create(pm).Error
}

func (r *ProgressRepository) FindByStudentCourse(studentID, courseID uint) (*model.Progress, error) {
	var p model.Progress
	err := r.withTree(r.DB).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&p).Error
	return &p, err
}

func (r *ProgressRepository) Exists(studentID, courseID uint) (bool, error) {
	var n int64
	err := r.DB.Model(&model.Progress{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&n).Error
	return n > 0, err
}

func (r *ProgressRepository) ListByStudent(studentID uint) ([]model.Progress, error) {
	var items []model.Progress
	err := r.withTree(r.DB).
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC").
		Find(&items).Error
	return items, err
}

func (r *ProgressRepository) ListByCourse(courseID uint) ([]model.Progress, error) {
	var items []model.Progress
	err := r.withTree(r.DB).
		Where("course_id = ?", courseID).
		Order("enrolled_at ASC").
		Find(&items).Error
	return items, err
}

// ListCourseIDs 返回存在进度记录的课程 ID，用于定时同步
func (r *ProgressRepository) ListCourseIDs() ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Progress{}).Distinct("course_id").Pluck("course_id", &ids).Error
	return ids, err
}

func (r *ProgressRepository) SaveProgress(p *model.Progress) error {
	return r.DB.Omit(clause.Associations).Save(p).Error
}

func (r *ProgressRepository) SaveLevel(pl *model.ProgressLevel) error {
	return r.DB.Omit(clause.Associations).Save(pl).Error
}

func (r *ProgressRepository) SaveModule(pm *model.ProgressModule) error {
	return r.DB.Save(pm).Error
}

func (r *ProgressRepository) DeleteLevelEntries(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.DB.Where("progress_level_id IN ?", ids).Delete(&model.ProgressModule{}).Error; err != nil {
		return err
	}
	return r.DB.Where("id IN ?", ids).Delete(&model.ProgressLevel{}).Error
}

func (r *ProgressRepository) DeleteModuleEntries(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB.Where("id IN ?", ids).Delete(&model.ProgressModule{}).Error
}

func (r *ProgressRepository) Delete(progressID uint) error {
	if err := r.DB.Where("progress_id = ?", progressID).Delete(&model.ProgressModule{}).Error; err != nil {
		return err
	}
	if err := r.DB.Where("progress_id = ?", progressID).Delete(&model.ProgressLevel{}).Error; err != nil {
		return err
	}
	return r.DB.Delete(&model.Progress{}, progressID).Error
}
