package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresInfluencerStore resolves influencers case-insensitively by handle.
type PostgresInfluencerStore struct {
	db *sqlx.DB
}

var _ drepo.InfluencerStore = (*PostgresInfluencerStore)(nil)

func NewPostgresInfluencerStore(db *sqlx.DB) *PostgresInfluencerStore {
	return &PostgresInfluencerStore{db: db}
}

func (s *PostgresInfluencerStore) GetByHandle(ctx context.Context, handle string) (*models.Influencer, error) {
	var in models.Influencer
	err := s.db.GetContext(ctx, &in, `
		SELECT id, twitter_handle, display_name, profile_image_url, is_active, priority, created_at
		FROM influencers WHERE lower(twitter_handle) = lower($1)`, handle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get influencer: %w", err)
	}
	return &in, nil
}

// Create inserts the influencer. When a concurrent run created the same handle first,
// the existing id is returned.
func (s *PostgresInfluencerStore) Create(ctx context.Context, in *models.Influencer) (string, error) {
	row := *in
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	rows, err := s.db.NamedQueryContext(ctx, `
		INSERT INTO influencers (id, twitter_handle, display_name, profile_image_url, is_active, priority, created_at)
		VALUES (:id, :twitter_handle, :display_name, :profile_image_url, :is_active, :priority, :created_at)
		ON CONFLICT ((lower(twitter_handle))) DO UPDATE SET display_name = influencers.display_name
		RETURNING id`, row)
	if err != nil {
		return "", fmt.Errorf("create influencer: %w", err)
	}
	defer rows.Close()

	var id string
	if !rows.Next() {
		return "", fmt.Errorf("create influencer: no id returned")
	}
	if err := rows.Scan(&id); err != nil {
		return "", fmt.Errorf("create influencer: %w", err)
	}
	return id, nil
}
