package service

import (
	"context"
	"fmt"
	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer 发送通知邮件
type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, html string) error
}

// SendGridMailer 通过 SendGrid v3 API 发送
type SendGridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
	prefix string
}

func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.SendGridKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		prefix: "[" + cfg.FromName + "] ",
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toName, toEmail, subject, html string) error {
	msg := sgmail.NewSingleEmail(m.from, m.prefix+subject, sgmail.NewEmail(toName, toEmail), "", html)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer 未配置 SendGrid 时仅记录日志
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, toName, toEmail, subject, html string) error {
	logger.Log.Info("mail not configured, skipping delivery",
		zap.String("to", toEmail),
		zap.String("subject", subject),
	)
	return nil
}

func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.SendGridKey == "" {
		return LogMailer{}
	}
	return NewSendGridMailer(cfg)
}
