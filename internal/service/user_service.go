package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService 管理员对账号的审批与管理
type UserService struct {
	UserRepo *repository.UserRepository
	Mailer   Mailer
}

func NewUserService(userRepo *repository.UserRepository, mailer Mailer) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Mailer:   mailer,
	}
}

func (s *UserService) List(filter repository.UserFilter, page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(filter, page, limit)
}

func (s *UserService) find(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

// SetApproval 修改审批状态，由未审批变为已审批时发送通知邮件
func (s *UserService) SetApproval(ctx context.Context, id uint, approved bool) (*model.User, error) {
	user, err := s.find(id)
	if err != nil {
		return nil, err
	}

	wasApproved := user.Approved
	user.Approved = approved
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}

	if approved && !wasApproved && s.Mailer != nil {
		body := fmt.Sprintf("<p>Hi %s,</p><p>Your LearnHub account has been approved. You can now sign in.</p>",
			html.EscapeString(user.Name))
		// 邮件失败不影响审批结果
		if err := s.Mailer.Send(ctx, user.Name, user.Email, "Your LearnHub account is approved", body); err != nil {
			logger.Log.Warn("approval mail failed", zap.Uint("userId", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

func (s *UserService) SetRole(actorID, id uint, role model.UserRole) (*model.User, error) {
	if !role.Valid() {
		return nil, util.ErrInvalidRole
	}
	if actorID == id && role != model.Admin {
		return nil, util.ErrSelfModification
	}

	user, err := s.find(id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if role == model.Admin {
		user.Approved = true
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(actorID, id uint) error {
	if actorID == id {
		return util.ErrSelfModification
	}
	if _, err := s.find(id); err != nil {
		return err
	}
	return s.UserRepo.Delete(id)
}
