package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
)

type templateRepository struct {
	*BaseRepository
}

func NewTemplateRepository(db *sqlx.DB) repository.TemplateRepository {
	return &templateRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *templateRepository) Create(ctx context.Context, tmpl *model.MessageTemplate) error {
	query := `
		INSERT INTO message_templates (id, organization_id, name, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	tmpl.CreatedAt = time.Now()
	tmpl.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		tmpl.ID,
		tmpl.OrganizationID,
		tmpl.Name,
		tmpl.Body,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) Get(ctx context.Context, orgID uuid.UUID, name string) (*model.MessageTemplate, error) {
	query := `SELECT * FROM message_templates WHERE organization_id = $1 AND name = $2`
	var tmpl model.MessageTemplate
	err := r.db.GetContext(ctx, &tmpl, query, orgID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tmpl, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MessageTemplate, error) {
	query := `SELECT * FROM message_templates WHERE id = $1`
	var tmpl model.MessageTemplate
	err := r.db.GetContext(ctx, &tmpl, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tmpl, nil
}

func (r *templateRepository) List(ctx context.Context, orgID uuid.UUID) ([]*model.MessageTemplate, error) {
	query := `SELECT * FROM message_templates WHERE organization_id = $1 ORDER BY name`
	var templates []*model.MessageTemplate
	err := r.db.SelectContext(ctx, &templates, query, orgID)
	return templates, err
}

func (r *templateRepository) Update(ctx context.Context, tmpl *model.MessageTemplate) error {
	query := `UPDATE message_templates SET name = $1, body = $2, updated_at = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, tmpl.Name, tmpl.Body, time.Now(), tmpl.ID)
	return err
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM message_templates WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
