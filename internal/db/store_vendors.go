package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/david/rfp-desk/internal/models"
)

const vendorCols = `id, name, email, contact_person, website, site_profile, notes, created_at, updated_at`

func scanVendor(scan func(dest ...interface{}) error) (models.Vendor, error) {
	var v models.Vendor
	var profileRaw []byte

	err := scan(
		&v.ID, &v.Name, &v.Email, &v.ContactPerson, &v.Website, &profileRaw,
		&v.Notes, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return v, err
	}
	if len(profileRaw) > 0 {
		_ = json.Unmarshal(profileRaw, &v.SiteProfile)
	}
	return v, nil
}

func (s *Store) CreateVendor(ctx context.Context, v *models.Vendor) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.Email = strings.ToLower(strings.TrimSpace(v.Email))

	profile, err := marshalJSONB(v.SiteProfile)
	if err != nil {
		return fmt.Errorf("marshal site_profile: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO vendors (id, name, email, contact_person, website, site_profile, notes)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		RETURNING created_at, updated_at
	`, v.ID, v.Name, v.Email, v.ContactPerson, v.Website, profile, v.Notes,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (s *Store) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM vendors WHERE id = $1", vendorCols), id)
	v, err := scanVendor(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return &v, nil
}

func (s *Store) GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM vendors WHERE email = $1", vendorCols), email)
	v, err := scanVendor(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor by email: %w", err)
	}
	return &v, nil
}

func (s *Store) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT %s FROM vendors ORDER BY name", vendorCols))
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []models.Vendor
	for rows.Next() {
		v, err := scanVendor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if vendors == nil {
		vendors = []models.Vendor{}
	}
	return vendors, nil
}

func (s *Store) UpdateVendor(ctx context.Context, v *models.Vendor) error {
	v.Email = strings.ToLower(strings.TrimSpace(v.Email))

	profile, err := marshalJSONB(v.SiteProfile)
	if err != nil {
		return fmt.Errorf("marshal site_profile: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE vendors SET
			name = $1,
			email = $2,
			contact_person = $3,
			website = $4,
			site_profile = $5::jsonb,
			notes = $6,
			updated_at = NOW()
		WHERE id = $7
	`, v.Name, v.Email, v.ContactPerson, v.Website, profile, v.Notes, v.ID)
	if err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vendor %s not found", v.ID)
	}
	return nil
}

func (s *Store) DeleteVendor(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM vendors WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vendor %s not found", id)
	}
	return nil
}

// UpdateVendorSiteProfile stores the result of a website probe.
func (s *Store) UpdateVendorSiteProfile(ctx context.Context, id uuid.UUID, website string, profile map[string]interface{}) error {
	payload, err := marshalJSONB(profile)
	if err != nil {
		return fmt.Errorf("marshal site_profile: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE vendors SET website = $1, site_profile = $2::jsonb, updated_at = NOW() WHERE id = $3
	`, website, payload, id)
	if err != nil {
		return fmt.Errorf("update vendor site profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vendor %s not found", id)
	}
	return nil
}
