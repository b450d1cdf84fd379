package service

import (
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

// 推送给客户端的事件类型
const (
	EventMessageCreated  = "MESSAGE_CREATED"
	EventMessageDeleted  = "MESSAGE_DELETED"
	EventReplyCreated    = "REPLY_CREATED"
	EventReplyDeleted    = "REPLY_DELETED"
	EventReactionToggled = "REACTION_TOGGLED"
)

// Broadcaster 将留言板事件推送给在线客户端
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
}

type MessageService struct {
	MessageRepo *repository.MessageRepository
	UserRepo    *repository.UserRepository
	Hub         Broadcaster
}

func NewMessageService(messageRepo *repository.MessageRepository, userRepo *repository.UserRepository, hub Broadcaster) *MessageService {
	return &MessageService{
		MessageRepo: messageRepo,
		UserRepo:    userRepo,
		Hub:         hub,
	}
}

// MessageView 留言及其回复和聚合后的表情
type MessageView struct {
	model.Message
	ReactionSummary []model.ReactionSummary `json:"reactionSummary"`
}

// ReactionState 切换表情后的状态
type ReactionState struct {
	MessageID string                  `json:"messageId"`
	UserID    uint                    `json:"userId"`
	Emoji     string                  `json:"emoji"`
	Reacted   bool                    `json:"reacted"`
	Summary   []model.ReactionSummary `json:"summary"`
}

func toView(msg model.Message) MessageView {
	if msg.Replies == nil {
		msg.Replies = []model.MessageReply{}
	}
	if msg.Reactions == nil {
		msg.Reactions = []model.MessageReaction{}
	}
	summary := model.SummarizeReactions(msg.Reactions)
	if summary == nil {
		summary = []model.ReactionSummary{}
	}
	return MessageView{Message: msg, ReactionSummary: summary}
}

func (s *MessageService) broadcast(eventType string, data interface{}) {
	if s.Hub != nil {
		s.Hub.Broadcast(eventType, data)
	}
}

func (s *MessageService) sender(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *MessageService) findMessage(id string) (*model.Message, error) {
	msg, err := s.MessageRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrMessageNotFound
	}
	return msg, err
}

// List 按时间倒序分页
func (s *MessageService) List(page, limit int) ([]MessageView, int64, error) {
	messages, total, err := s.MessageRepo.FindWithPagination((page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		out = append(out, toView(m))
	}
	return out, total, nil
}

func (s *MessageService) Create(senderID uint, content string) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, util.ErrEmptyContent
	}
	user, err := s.sender(senderID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		Content:    content,
		SenderID:   user.ID,
		SenderName: user.Name,
		Role:       user.Role,
	}
	if err := s.MessageRepo.Create(msg); err != nil {
		return nil, err
	}

	view := toView(*msg)
	s.broadcast(EventMessageCreated, view)
	return &view, nil
}

// Delete 管理员或发送者可删除
func (s *MessageService) Delete(actor *util.Claims, id string) error {
	msg, err := s.findMessage(id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && msg.SenderID != actor.UserID {
		return util.ErrPermissionDenied
	}
	if err := s.MessageRepo.Delete(id); err != nil {
		return err
	}
	s.broadcast(EventMessageDeleted, map[string]interface{}{"id": id})
	return nil
}

func (s *MessageService) Reply(senderID uint, messageID, content string) (*model.MessageReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, util.ErrEmptyContent
	}
	if _, err := s.findMessage(messageID); err != nil {
		return nil, err
	}
	user, err := s.sender(senderID)
	if err != nil {
		return nil, err
	}

	reply := &model.MessageReply{
		MessageID:  messageID,
		Content:    content,
		SenderID:   user.ID,
		SenderName: user.Name,
		Role:       user.Role,
	}
	if err := s.MessageRepo.CreateReply(reply); err != nil {
		return nil, err
	}
	s.broadcast(EventReplyCreated, reply)
	return reply, nil
}

// DeleteReply 管理员或回复作者可删除
func (s *MessageService) DeleteReply(actor *util.Claims, messageID, replyID string) error {
	reply, err := s.MessageRepo.FindReply(messageID, replyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrReplyNotFound
	} else if err != nil {
		return err
	}
	if !actor.IsAdmin() && reply.SenderID != actor.UserID {
		return util.ErrPermissionDenied
	}
	if err := s.MessageRepo.DeleteReply(replyID); err != nil {
		return err
	}
	s.broadcast(EventReplyDeleted, map[string]interface{}{"messageId": messageID, "id": replyID})
	return nil
}

func (s *MessageService) ToggleReaction(userID uint, messageID, emoji string) (*ReactionState, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, util.ErrEmptyContent
	}
	if _, err := s.findMessage(messageID); err != nil {
		return nil, err
	}

	reacted, err := s.MessageRepo.ToggleReaction(messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	reactions, err := s.MessageRepo.ListReactions(messageID)
	if err != nil {
		return nil, err
	}
	summary := model.SummarizeReactions(reactions)
	if summary == nil {
		summary = []model.ReactionSummary{}
	}

	state := &ReactionState{MessageID: messageID, UserID: userID, Emoji: emoji, Reacted: reacted, Summary: summary}
	s.broadcast(EventReactionToggled, state)
	return state, nil
}
