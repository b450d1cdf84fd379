package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) FindByModule(moduleID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.
		Preload("Questions", byPosition).
		Where("module_id = ?", moduleID).
		First(&quiz).Error
	return &quiz, err
}

// Replace 新建或覆盖模块的测验，题目整体替换
func (r *QuizRepository) Replace(quiz *model.Quiz) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.Quiz
		err := tx.Where("module_id = ?", quiz.ModuleID).First(&existing).Error
		switch {
		case err == nil:
			quiz.ID = existing.ID
			quiz.CreatedAt = existing.CreatedAt
			if err := tx.Omit(clause.Associations).Save(quiz).Error; err != nil {
				return err
			}
			if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&model.QuizQuestion{}).Error; err != nil {
				return err
			}
		case err == gorm.ErrRecordNotFound:
			if err := tx.Omit(clause.Associations).Create(quiz).Error; err != nil {
				return err
			}
		default:
			return err
		}

		for i := range quiz.Questions {
			quiz.Questions[i].ID = 0
			quiz.Questions[i].QuizID = quiz.ID
			quiz.Questions[i].Order = i
		}
		if len(quiz.Questions) == 0 {
			return nil
		}
		return tx.Create(&quiz.Questions).Error
	})
}

func (r *QuizRepository) DeleteByModule(moduleID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		quizIDs := tx.Model(&model.Quiz{}).Select("id").Where("module_id = ?", moduleID)
		if err := tx.Where("quiz_id IN (?)", quizIDs).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Where("module_id = ?", moduleID).Delete(&model.Quiz{}).Error
	})
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}
