package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/david/rfp-desk/internal/models"
)

const proposalCols = `id, rfp_id, vendor_id, total_price, currency, delivery_days,
	warranty_months, terms, notes, source, email_id, created_at, updated_at`

func scanProposal(scan func(dest ...interface{}) error) (models.Proposal, error) {
	var p models.Proposal
	err := scan(
		&p.ID, &p.RfpID, &p.VendorID, &p.TotalPrice, &p.Currency, &p.DeliveryDays,
		&p.WarrantyMonths, &p.Terms, &p.Notes, &p.Source, &p.EmailID, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Source == "" {
		p.Source = models.SourceManual
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO proposals (
			id, rfp_id, vendor_id, total_price, currency, delivery_days,
			warranty_months, terms, notes, source, email_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, p.ID, p.RfpID, p.VendorID, p.TotalPrice, p.Currency, p.DeliveryDays,
		p.WarrantyMonths, p.Terms, p.Notes, p.Source, p.EmailID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM proposals WHERE id = $1", proposalCols), id)
	p, err := scanProposal(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return &p, nil
}

// ListProposalsByRfp returns proposals in arrival order. The ranking engine
// relies on this ordering for its createdAt tie break.
func (s *Store) ListProposalsByRfp(ctx context.Context, rfpID uuid.UUID) ([]models.Proposal, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM proposals WHERE rfp_id = $1 ORDER BY created_at, id", proposalCols), rfpID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if proposals == nil {
		proposals = []models.Proposal{}
	}
	return proposals, nil
}

func (s *Store) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE proposals SET
			total_price = $1,
			currency = $2,
			delivery_days = $3,
			warranty_months = $4,
			terms = $5,
			notes = $6,
			updated_at = NOW()
		WHERE id = $7
	`, p.TotalPrice, p.Currency, p.DeliveryDays, p.WarrantyMonths, p.Terms, p.Notes, p.ID)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proposal %s not found", p.ID)
	}
	return nil
}

func (s *Store) DeleteProposal(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM proposals WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proposal %s not found", id)
	}
	return nil
}
