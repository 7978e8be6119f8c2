package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	"SignalPull/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresSignalStore implements SignalStore on sqlx.
type PostgresSignalStore struct {
	db     *sqlx.DB
	logger *logger.Logger
	now    func() time.Time
}

var _ drepo.SignalStore = (*PostgresSignalStore)(nil)

func NewPostgresSignalStore(db *sqlx.DB, lgr *logger.Logger) *PostgresSignalStore {
	return &PostgresSignalStore{db: db, logger: lgr, now: time.Now}
}

const signalColumns = `id, influencer_id, sentiment, confidence, entry_price, price_source,
	signal_timestamp, source_url, original_text, summary, created_at, updated_at`

func (s *PostgresSignalStore) ExistsByURL(ctx context.Context, sourceURL string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM signals WHERE source_url = $1)`, sourceURL)
	if err != nil {
		return false, fmt.Errorf("exists by url: %w", err)
	}
	return exists, nil
}

func (s *PostgresSignalStore) SentimentsInWindow(ctx context.Context, influencerID string, from, to int64) ([]models.Sentiment, error) {
	var out []models.Sentiment
	err := s.db.SelectContext(ctx, &out, `
		SELECT sentiment FROM signals
		WHERE influencer_id = $1 AND signal_timestamp BETWEEN $2 AND $3`, influencerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("sentiments in window: %w", err)
	}
	return out, nil
}

// Upsert writes every column on conflict so a re-collected post fully replaces the row.
// The id of an existing row is kept.
func (s *PostgresSignalStore) Upsert(ctx context.Context, sig *models.Signal) (string, error) {
	row := *sig
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	rows, err := s.db.NamedQueryContext(ctx, `
		INSERT INTO signals (`+signalColumns+`)
		VALUES (:id, :influencer_id, :sentiment, :confidence, :entry_price, :price_source,
			:signal_timestamp, :source_url, :original_text, :summary, :created_at, :updated_at)
		ON CONFLICT (source_url) DO UPDATE SET
			influencer_id    = EXCLUDED.influencer_id,
			sentiment        = EXCLUDED.sentiment,
			confidence       = EXCLUDED.confidence,
			entry_price      = EXCLUDED.entry_price,
			price_source     = EXCLUDED.price_source,
			signal_timestamp = EXCLUDED.signal_timestamp,
			original_text    = EXCLUDED.original_text,
			summary          = EXCLUDED.summary,
			updated_at       = EXCLUDED.updated_at
		RETURNING id`, row)
	if err != nil {
		s.logger.Error("Signal upsert failed", logger.String("source_url", sig.SourceURL), logger.Error(err))
		return "", fmt.Errorf("upsert signal: %w", err)
	}
	defer rows.Close()

	var id string
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", fmt.Errorf("upsert signal: %w", err)
		}
		return "", fmt.Errorf("upsert signal: no id returned")
	}
	if err := rows.Scan(&id); err != nil {
		return "", fmt.Errorf("upsert signal: %w", err)
	}
	return id, nil
}

func (s *PostgresSignalStore) Get(ctx context.Context, id string) (*models.Signal, error) {
	var sig models.Signal
	err := s.db.GetContext(ctx, &sig, `SELECT `+signalColumns+` FROM signals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signal: %w", err)
	}
	return &sig, nil
}

func (s *PostgresSignalStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM signals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete signal: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return drepo.ErrNotFound
	}
	return nil
}

// List returns signals with influencer info ordered by signal time. limit <= 0 means all.
func (s *PostgresSignalStore) List(ctx context.Context, from, to time.Time, limit int) ([]models.SignalView, error) {
	q := `
		SELECT s.id, s.influencer_id, s.sentiment, s.confidence, s.entry_price, s.price_source,
			s.signal_timestamp, s.source_url, s.original_text, s.summary, s.created_at, s.updated_at,
			i.twitter_handle, i.display_name, i.profile_image_url
		FROM signals s
		JOIN influencers i ON i.id = s.influencer_id
		WHERE s.signal_timestamp BETWEEN $1 AND $2
		ORDER BY s.signal_timestamp ASC`
	args := []interface{}{from.Unix(), to.Unix()}
	if limit > 0 {
		q += ` LIMIT $3`
		args = append(args, limit)
	}

	start := time.Now()
	var out []models.SignalView
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	s.logger.Debug("Listed signals",
		logger.Int("count", len(out)),
		logger.Duration("took", time.Since(start)))
	return out, nil
}

func (s *PostgresSignalStore) ListByPriceSource(ctx context.Context, src models.PriceSource) ([]models.Signal, error) {
	var out []models.Signal
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+signalColumns+` FROM signals WHERE price_source = $1 ORDER BY signal_timestamp ASC`, src)
	if err != nil {
		return nil, fmt.Errorf("list by price source: %w", err)
	}
	return out, nil
}

func (s *PostgresSignalStore) UpdateEntryPrice(ctx context.Context, id string, price float64, src models.PriceSource) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET entry_price = $2, price_source = $3, updated_at = $4 WHERE id = $1`,
		id, price, src, s.now().UTC())
	if err != nil {
		return fmt.Errorf("update entry price: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return drepo.ErrNotFound
	}
	return nil
}

func (s *PostgresSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
