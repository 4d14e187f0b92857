package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `id, owner_id, name, email, COALESCE(phone, ''), COALESCE(company, ''), info, created_at, updated_at`

func (r *LeadRepository) List(ctx context.Context, ownerID string) ([]entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]entity.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) FindByID(ctx context.Context, ownerID, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE owner_id = $1 AND id = $2`, ownerID, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	return lead, err
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	info, err := marshalInfo(lead.Info)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO leads (id, owner_id, name, email, phone, company, info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.OwnerID,
		lead.Name,
		lead.Email,
		nullString(lead.Phone),
		nullString(lead.Company),
		info,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	info, err := marshalInfo(lead.Info)
	if err != nil {
		return err
	}

	query := `
		UPDATE leads
		SET name = $3, email = $4, phone = $5, company = $6, info = $7, updated_at = $8
		WHERE owner_id = $1 AND id = $2
	`
	res, err := r.DB.ExecContext(ctx, query,
		lead.OwnerID,
		lead.ID,
		lead.Name,
		lead.Email,
		nullString(lead.Phone),
		nullString(lead.Company),
		info,
		lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (r *LeadRepository) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(s scanner) (*entity.Lead, error) {
	var (
		lead entity.Lead
		info []byte
	)
	err := s.Scan(
		&lead.ID,
		&lead.OwnerID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&info,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &lead.Info); err != nil {
			return nil, fmt.Errorf("invalid lead info: %w", err)
		}
	}
	return &lead, nil
}

func marshalInfo(info map[string]string) ([]byte, error) {
	if info == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(info)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
