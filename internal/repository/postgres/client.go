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

type clientRepository struct {
	*BaseRepository
}

func NewClientRepository(db *sqlx.DB) repository.ClientRepository {
	return &clientRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	query := `
		INSERT INTO clients (id, organization_id, name, whatsapp, phone, email, date_of_birth, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	client.CreatedAt = time.Now()
	client.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.OrganizationID,
		client.Name,
		client.WhatsApp,
		client.Phone,
		client.Email,
		client.DateOfBirth,
		client.Status,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	query := `SELECT * FROM clients WHERE id = $1`
	var client model.Client
	err := r.db.GetContext(ctx, &client, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	query := `
		UPDATE clients
		SET name = $1, whatsapp = $2, phone = $3, email = $4, date_of_birth = $5, status = $6, updated_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query,
		client.Name,
		client.WhatsApp,
		client.Phone,
		client.Email,
		client.DateOfBirth,
		client.Status,
		time.Now(),
		client.ID,
	)
	return err
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM clients WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *clientRepository) List(ctx context.Context, filters *model.ClientFilters) ([]*model.Client, error) {
	query := `SELECT * FROM clients WHERE organization_id = $1`
	args := []interface{}{filters.OrganizationID}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filters.Status)
	}
	if filters.SearchTerm != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args)+1)
		args = append(args, "%"+filters.SearchTerm+"%")
	}
	query += " ORDER BY name"

	var clients []*model.Client
	err := r.db.SelectContext(ctx, &clients, query, args...)
	return clients, err
}

func (r *clientRepository) FindWithBirthdate(ctx context.Context) ([]*model.Client, error) {
	query := `SELECT * FROM clients WHERE date_of_birth IS NOT NULL AND status = $1`
	var clients []*model.Client
	err := r.db.SelectContext(ctx, &clients, query, model.ClientStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to find clients with birthdate: %w", err)
	}
	return clients, nil
}
