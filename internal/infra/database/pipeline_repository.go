package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

const uniqueViolation = "23505"

type PipelineRepository struct {
	DB *sql.DB
}

func NewPipelineRepository(db *sql.DB) *PipelineRepository {
	return &PipelineRepository{DB: db}
}

const pipelineColumns = `id, owner_id, name, stages, created_at, updated_at`

func (r *PipelineRepository) List(ctx context.Context, ownerID string) ([]entity.Pipeline, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+pipelineColumns+` FROM pipelines WHERE owner_id = $1 ORDER BY created_at, name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pipelines := make([]entity.Pipeline, 0)
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, *p)
	}
	return pipelines, rows.Err()
}

func (r *PipelineRepository) FindByID(ctx context.Context, ownerID, id string) (*entity.Pipeline, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+pipelineColumns+` FROM pipelines WHERE owner_id = $1 AND id = $2`, ownerID, id)
	p, err := scanPipeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrPipelineNotFound
	}
	return p, err
}

func (r *PipelineRepository) Create(ctx context.Context, p *entity.Pipeline) error {
	stages, err := json.Marshal(p.Stages)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pipelines (id, owner_id, name, stages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.DB.ExecContext(ctx, query, p.ID, p.OwnerID, p.Name, stages, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return entity.ErrPipelineNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert pipeline: %w", err)
	}
	return nil
}

func (r *PipelineRepository) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM pipelines WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PipelineRepository) Mutate(ctx context.Context, ownerID, name string, fn func(p *entity.Pipeline) error) (*entity.Pipeline, error) {
	return r.mutate(ctx, `owner_id = $1 AND name = $2`, ownerID, name, fn)
}

func (r *PipelineRepository) MutateByID(ctx context.Context, ownerID, id string, fn func(p *entity.Pipeline) error) (*entity.Pipeline, error) {
	return r.mutate(ctx, `owner_id = $1 AND id = $2`, ownerID, id, fn)
}

// mutate locks the row for the length of the transaction so concurrent stage
// edits on one pipeline serialise instead of overwriting each other.
func (r *PipelineRepository) mutate(ctx context.Context, where, ownerID, key string, fn func(p *entity.Pipeline) error) (*entity.Pipeline, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+pipelineColumns+` FROM pipelines WHERE `+where+` FOR UPDATE`, ownerID, key)
	p, err := scanPipeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrPipelineNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()

	stages, err := json.Marshal(p.Stages)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE pipelines SET name = $2, stages = $3, updated_at = $4 WHERE id = $1`,
		p.ID, p.Name, stages, p.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, entity.ErrPipelineNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update pipeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PipelineRepository) Owners(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT owner_id FROM pipelines ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func scanPipeline(s scanner) (*entity.Pipeline, error) {
	var (
		p      entity.Pipeline
		stages []byte
	)
	if err := s.Scan(&p.ID, &p.OwnerID, &p.Name, &stages, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stages, &p.Stages); err != nil {
		return nil, fmt.Errorf("invalid stages for pipeline %s: %w", p.ID, err)
	}
	for i := range p.Stages {
		if p.Stages[i].Leads == nil {
			p.Stages[i].Leads = []entity.LeadSnapshot{}
		}
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
