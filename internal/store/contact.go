package store

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
)

// CreateContactMessage stores a contact form submission
func (s *Store) CreateContactMessage(ctx context.Context, m *models.ContactMessage) error {
	query := `
		INSERT INTO contact_messages (name, email, phone, subject, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at`

	return s.db.GetContext(ctx, m, query, m.Name, m.Email, m.Phone, m.Subject, m.Message)
}

// ListContactMessages retrieves a page of messages, newest first
func (s *Store) ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset int) ([]models.ContactMessage, error) {
	messages := []models.ContactMessage{}
	err := s.db.SelectContext(ctx, &messages, `
		SELECT * FROM contact_messages
		WHERE ($1 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, unreadOnly, limit, offset)
	return messages, err
}

// MarkContactMessageRead flags a message as read
func (s *Store) MarkContactMessageRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE contact_messages SET is_read = TRUE WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectRow(res, fmt.Sprintf("contact message %d", id))
}
