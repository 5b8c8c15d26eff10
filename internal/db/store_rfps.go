package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/david/rfp-desk/internal/models"
)

const rfpCols = `id, title, natural_language_input, structured_spec, budget, currency,
	delivery_deadline, minimum_warranty_months, payment_terms, criteria_weights,
	created_by, created_at, updated_at`

func scanRfp(scan func(dest ...interface{}) error) (models.Rfp, error) {
	var r models.Rfp
	var structuredRaw, weightsRaw []byte

	err := scan(
		&r.ID, &r.Title, &r.NaturalLanguageInput, &structuredRaw, &r.Budget, &r.Currency,
		&r.DeliveryDeadline, &r.MinimumWarrantyMonths, &r.PaymentTerms, &weightsRaw,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}

	if len(structuredRaw) > 0 {
		_ = json.Unmarshal(structuredRaw, &r.StructuredSpec)
	}
	if len(weightsRaw) > 0 {
		var w models.CriteriaWeights
		if err := json.Unmarshal(weightsRaw, &w); err == nil {
			r.CriteriaWeights = &w
		}
	}

	return r, nil
}

func (s *Store) CreateRfp(ctx context.Context, r *models.Rfp) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	structured, err := marshalJSONB(r.StructuredSpec)
	if err != nil {
		return fmt.Errorf("marshal structured_spec: %w", err)
	}
	var weights interface{}
	if r.CriteriaWeights != nil {
		weights, err = marshalJSONB(*r.CriteriaWeights)
		if err != nil {
			return fmt.Errorf("marshal criteria_weights: %w", err)
		}
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO rfps (
			id, title, natural_language_input, structured_spec, budget, currency,
			delivery_deadline, minimum_warranty_months, payment_terms, criteria_weights, created_by
		) VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10::jsonb, $11)
		RETURNING created_at, updated_at
	`, r.ID, r.Title, r.NaturalLanguageInput, structured, r.Budget, r.Currency,
		r.DeliveryDeadline, r.MinimumWarrantyMonths, r.PaymentTerms, weights, r.CreatedBy,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert rfp: %w", err)
	}
	return nil
}

func (s *Store) GetRfp(ctx context.Context, id uuid.UUID) (*models.Rfp, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM rfps WHERE id = $1", rfpCols), id)
	r, err := scanRfp(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rfp: %w", err)
	}
	return &r, nil
}

func (s *Store) UpdateRfp(ctx context.Context, r *models.Rfp) error {
	structured, err := marshalJSONB(r.StructuredSpec)
	if err != nil {
		return fmt.Errorf("marshal structured_spec: %w", err)
	}
	var weights interface{}
	if r.CriteriaWeights != nil {
		weights, err = marshalJSONB(*r.CriteriaWeights)
		if err != nil {
			return fmt.Errorf("marshal criteria_weights: %w", err)
		}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE rfps SET
			title = $1,
			natural_language_input = $2,
			structured_spec = $3::jsonb,
			budget = $4,
			currency = $5,
			delivery_deadline = $6,
			minimum_warranty_months = $7,
			payment_terms = $8,
			criteria_weights = $9::jsonb,
			updated_at = NOW()
		WHERE id = $10
	`, r.Title, r.NaturalLanguageInput, structured, r.Budget, r.Currency,
		r.DeliveryDeadline, r.MinimumWarrantyMonths, r.PaymentTerms, weights, r.ID)
	if err != nil {
		return fmt.Errorf("update rfp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rfp %s not found", r.ID)
	}
	return nil
}

func (s *Store) DeleteRfp(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM rfps WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete rfp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rfp %s not found", id)
	}
	return nil
}

// UpdateRfpTitleEmbedding stores the semantic vector for an RFP title.
// Generated out of band so RFP creation never waits on the model.
func (s *Store) UpdateRfpTitleEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	if len(embedding) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		"UPDATE rfps SET title_embedding = $1 WHERE id = $2",
		pgvector.NewVector(embedding), id)
	if err != nil {
		return fmt.Errorf("update rfp embedding: %w", err)
	}
	return nil
}

type RfpListParams struct {
	Query          string
	QueryEmbedding []float32
	Limit          int
	Offset         int
}

type RfpListResult struct {
	Rfps   []models.Rfp `json:"rfps"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListRfps filters by keyword and, when a query embedding is supplied, ranks
// by vector similarity with full-text rank as the tie breaker.
func (s *Store) ListRfps(ctx context.Context, params RfpListParams) (*RfpListResult, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 50
	}

	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Query != "" {
		where += fmt.Sprintf(" AND (to_tsvector('english', title) @@ plainto_tsquery('english', $%d) OR title ILIKE '%%' || $%d || '%%')", argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM rfps "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM rfps %s", rfpCols, where)
	if len(params.QueryEmbedding) > 0 {
		vectorArg := argIdx
		args = append(args, pgvector.NewVector(params.QueryEmbedding))
		argIdx++
		selectSQL += fmt.Sprintf(`
			ORDER BY
				CASE WHEN title_embedding IS NULL THEN 1 ELSE 0 END ASC,
				COALESCE(1 - (title_embedding <=> $%d), -1) DESC,
				created_at DESC
		`, vectorArg)
	} else if params.Query != "" {
		queryArg := argIdx
		args = append(args, params.Query)
		argIdx++
		selectSQL += fmt.Sprintf(" ORDER BY ts_rank(to_tsvector('english', title), plainto_tsquery('english', $%d::text)) DESC, created_at DESC", queryArg)
	} else {
		selectSQL += " ORDER BY created_at DESC"
	}

	selectSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var rfps []models.Rfp
	for rows.Next() {
		r, err := scanRfp(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		rfps = append(rfps, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if rfps == nil {
		rfps = []models.Rfp{}
	}

	return &RfpListResult{
		Rfps:   rfps,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}

// SearchRfpByKeyword resolves a subject-line keyword to at most one RFP.
// A substring title match wins; full-text rank is the fallback for word
// order and inflection differences. The oldest match is chosen so a vendor
// replying to a re-issued RFP lands on the original.
func (s *Store) SearchRfpByKeyword(ctx context.Context, keyword string) (*models.Rfp, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM rfps
		WHERE title ILIKE '%%' || $1 || '%%'
		ORDER BY created_at ASC
		LIMIT 1
	`, rfpCols), keyword)

	r, err := scanRfp(row.Scan)
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	row = s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM rfps
		WHERE to_tsvector('english', title) @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(to_tsvector('english', title), plainto_tsquery('english', $1)) DESC, created_at ASC
		LIMIT 1
	`, rfpCols), keyword)

	r, err = scanRfp(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fulltext search: %w", err)
	}
	return &r, nil
}
