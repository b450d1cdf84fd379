package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	DB *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

func (r *MessageRepository) withThread(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Reactions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (r *MessageRepository) FindWithPagination(offset, limit int) ([]model.Message, int64, error) {
	var messages []model.Message
	var total int64

	if err := r.DB.Model(&model.Message{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.withThread(r.DB).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, total, err
}

func (r *MessageRepository) FindByID(id string) (*model.Message, error) {
	var msg model.Message
	err := r.withThread(r.DB).First(&msg, "id = ?", id).Error
	return &msg, err
}

func (r *MessageRepository) Create(msg *model.Message) error {
	return r.DB.Omit(clause.Associations).Create(msg).Error
}

func (r *MessageRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&model.MessageReply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&model.MessageReaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Message{}, "id = ?", id).Error
	})
}

func (r *MessageRepository) CreateReply(reply *model.MessageReply) error {
	return r.DB.Create(reply).Error
}

func (r *MessageRepository) FindReply(messageID, replyID string) (*model.MessageReply, error) {
	var reply model.MessageReply
	err := r.DB.Where("message_id = ?", messageID).First(&reply, "id = ?", replyID).Error
	return &reply, err
}

func (r *MessageRepository) DeleteReply(replyID string) error {
	return r.DB.Delete(&model.MessageReply{}, "id = ?", replyID).Error
}

// ToggleReaction 已存在则移除，否则添加；返回操作后是否处于已反应状态
func (r *MessageRepository) ToggleReaction(messageID string, userID uint, emoji string) (bool, error) {
	var reaction model.MessageReaction
	result := r.DB.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).First(&reaction)

	if result.Error == gorm.ErrRecordNotFound {
		err := r.DB.Create(&model.MessageReaction{MessageID: messageID, UserID: userID, Emoji: emoji}).Error
		return true, err
	} else if result.Error != nil {
		return false, result.Error
	}
	return false, r.DB.Delete(&reaction).Error
}

func (r *MessageRepository) ListReactions(messageID string) ([]model.MessageReaction, error) {
	var reactions []model.MessageReaction
	err := r.DB.Where("message_id = ?", messageID).Order("id ASC").Find(&reactions).Error
	return reactions, err
}
