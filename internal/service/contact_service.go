package service

import (
	"context"
	"strings"

	"storefront-service/internal/apperr"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// ContactStore persists contact form messages
type ContactStore interface {
	CreateContactMessage(ctx context.Context, m *models.ContactMessage) error
	ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset int) ([]models.ContactMessage, error)
	MarkContactMessageRead(ctx context.Context, id int64) error
}

// ContactService handles the storefront contact form
type ContactService struct {
	store  ContactStore
	logger *zap.Logger
}

// NewContactService creates a new contact service
func NewContactService(store ContactStore) *ContactService {
	return &ContactService{store: store, logger: util.GetLogger()}
}

// ContactRequest is a contact form submission
type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=128"`
	Email   string `json:"email" binding:"required,email,max=255"`
	Phone   string `json:"phone" binding:"max=32"`
	Subject string `json:"subject" binding:"max=255"`
	Message string `json:"message" binding:"required,max=5000"`
}

// Submit stores a contact message
func (s *ContactService) Submit(ctx context.Context, req *ContactRequest) (*models.ContactMessage, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}

	msg := &models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   strings.TrimSpace(req.Phone),
		Subject: strings.TrimSpace(req.Subject),
		Message: req.Message,
	}
	if err := s.store.CreateContactMessage(ctx, msg); err != nil {
		return nil, apperr.Wrap(err)
	}

	s.logger.Info("Contact message received", zap.Int64("message_id", msg.ID))
	return msg, nil
}

// List returns a page of messages, newest first
func (s *ContactService) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]models.ContactMessage, error) {
	limit, offset = pageBounds(limit, offset)
	messages, err := s.store.ListContactMessages(ctx, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return messages, nil
}

// MarkRead flags a message as read
func (s *ContactService) MarkRead(ctx context.Context, id int64) error {
	if err := s.store.MarkContactMessageRead(ctx, id); err != nil {
		return notFound(err, "Message not found")
	}
	return nil
}
