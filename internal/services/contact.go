package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/mail"
)

type ContactService struct {
	mailer   mail.Sender
	composer *mail.Composer
	logger   *logger.Logger
}

func NewContactService(mailer mail.Sender, composer *mail.Composer, logger *logger.Logger) *ContactService {
	return &ContactService{
		mailer:   mailer,
		composer: composer,
		logger:   logger,
	}
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}

// Send forwards a contact form message to the admin mailbox.
func (s *ContactService) Send(ctx context.Context, req *ContactRequest) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		return apperror.BadRequest("Missing required fields")
	}
	if err := s.mailer.Send(ctx, s.composer.Contact(req.Name, req.Email, req.Message)); err != nil {
		return fmt.Errorf("failed to send contact message: %w", err)
	}
	s.logger.WithField("email", req.Email).Info("Contact message queued")
	return nil
}
