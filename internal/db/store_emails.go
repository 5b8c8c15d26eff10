package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/david/rfp-desk/internal/models"
)

const emailCols = `id, from_address, to_address, subject, body_text, body_html,
	status, provider_message_id, rfp_id, error_reason, received_at, created_at`

func scanEmail(scan func(dest ...interface{}) error) (models.EmailMessage, error) {
	var e models.EmailMessage
	var providerID *string

	err := scan(
		&e.ID, &e.From, &e.To, &e.Subject, &e.BodyText, &e.BodyHTML,
		&e.Status, &providerID, &e.RfpID, &e.ErrorReason, &e.ReceivedAt, &e.CreatedAt,
	)
	if err != nil {
		return e, err
	}
	if providerID != nil {
		e.ProviderMessageID = *providerID
	}
	return e, nil
}

func (s *Store) CreateEmail(ctx context.Context, e *models.EmailMessage) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.EmailPending
	}

	var providerID interface{}
	if e.ProviderMessageID != "" {
		providerID = e.ProviderMessageID
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO email_messages (
			id, from_address, to_address, subject, body_text, body_html,
			status, provider_message_id, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, e.ID, e.From, e.To, e.Subject, e.BodyText, e.BodyHTML,
		e.Status, providerID, e.ReceivedAt,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert email: %w", err)
	}
	return nil
}

func (s *Store) GetEmail(ctx context.Context, id uuid.UUID) (*models.EmailMessage, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM email_messages WHERE id = $1", emailCols), id)
	e, err := scanEmail(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}
	return &e, nil
}

// GetEmailByProviderID deduplicates webhook deliveries.
func (s *Store) GetEmailByProviderID(ctx context.Context, providerMessageID string) (*models.EmailMessage, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM email_messages WHERE provider_message_id = $1", emailCols), providerMessageID)
	e, err := scanEmail(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email by provider id: %w", err)
	}
	return &e, nil
}

type EmailListParams struct {
	Status string
	RfpID  *uuid.UUID
	Limit  int
	Offset int
}

func (s *Store) ListEmails(ctx context.Context, params EmailListParams) ([]models.EmailMessage, error) {
	if params.Limit <= 0 || params.Limit > 500 {
		params.Limit = 100
	}

	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.RfpID != nil {
		where += fmt.Sprintf(" AND rfp_id = $%d", argIdx)
		args = append(args, *params.RfpID)
		argIdx++
	}

	sql := fmt.Sprintf("SELECT %s FROM email_messages %s ORDER BY received_at DESC LIMIT $%d OFFSET $%d",
		emailCols, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var emails []models.EmailMessage
	for rows.Next() {
		e, err := scanEmail(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if emails == nil {
		emails = []models.EmailMessage{}
	}
	return emails, nil
}

func (s *Store) UpdateEmailStatus(ctx context.Context, id uuid.UUID, status models.EmailStatus, errorReason string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE email_messages SET status = $1, error_reason = $2 WHERE id = $3",
		status, errorReason, id)
	if err != nil {
		return fmt.Errorf("update email status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("email %s not found", id)
	}
	return nil
}

func (s *Store) LinkEmailToRfp(ctx context.Context, emailID, rfpID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE email_messages SET rfp_id = $1 WHERE id = $2", rfpID, emailID)
	if err != nil {
		return fmt.Errorf("link email to rfp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("email %s not found", emailID)
	}
	return nil
}
