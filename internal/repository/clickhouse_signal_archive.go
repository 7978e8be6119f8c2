package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	"SignalPull/pkg/logger"
)

const archiveTable = "signal_events"

// ClickHouseSignalArchive appends saved-signal events. ReplacingMergeTree collapses
// redeliveries of the same event.
type ClickHouseSignalArchive struct {
	db     *sql.DB
	table  string
	logger *logger.Logger
}

var _ drepo.SignalArchive = (*ClickHouseSignalArchive)(nil)

func NewClickHouseSignalArchive(db *sql.DB, database string, lgr *logger.Logger) *ClickHouseSignalArchive {
	return &ClickHouseSignalArchive{db: db, table: database + "." + archiveTable, logger: lgr}
}

func (a *ClickHouseSignalArchive) Store(ctx context.Context, ev *models.SignalEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (saved_at, signal_id, influencer_id, handle, sentiment, confidence,
		entry_price, price_source, signal_timestamp, source_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.table)
	savedAt := time.Unix(ev.SavedAt, 0).UTC()
	if ev.SavedAt == 0 {
		savedAt = time.Now().UTC()
	}
	_, err := a.db.ExecContext(ctx, q,
		savedAt,
		ev.SignalID,
		ev.InfluencerID,
		ev.Handle,
		string(ev.Sentiment),
		uint8(ev.Confidence),
		ev.EntryPrice,
		string(ev.PriceSource),
		time.Unix(ev.SignalTimestamp, 0).UTC(),
		ev.SourceURL,
	)
	if err != nil {
		a.logger.Error("ClickHouse archive insert failed",
			logger.String("table", a.table),
			logger.String("signal_id", ev.SignalID),
			logger.Error(err))
		return fmt.Errorf("archive signal event: %w", err)
	}
	return nil
}

// DailyStats counts archived signals per UTC day and sentiment within [from, to].
func (a *ClickHouseSignalArchive) DailyStats(ctx context.Context, from, to time.Time) ([]models.SentimentStat, error) {
	q := fmt.Sprintf(`
		SELECT toDate(signal_timestamp) AS day, sentiment, count() AS signals, avg(confidence) AS avg_confidence
		FROM %s FINAL
		WHERE signal_timestamp >= ? AND signal_timestamp <= ?
		GROUP BY day, sentiment
		ORDER BY day ASC, sentiment ASC`, a.table)
	start := time.Now()
	rows, err := a.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		a.logger.Error("ClickHouse daily stats query failed", logger.String("table", a.table), logger.Error(err))
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	defer rows.Close()

	out := []models.SentimentStat{}
	for rows.Next() {
		var (
			day   time.Time
			st    models.SentimentStat
			count uint64
		)
		if err := rows.Scan(&day, &st.Sentiment, &count, &st.AvgConfidence); err != nil {
			return nil, fmt.Errorf("daily stats scan: %w", err)
		}
		st.Day = day.Format("2006-01-02")
		st.Count = int(count)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	a.logger.Debug("ClickHouse daily stats",
		logger.Int("rows", len(out)),
		logger.Duration("took", time.Since(start)))
	return out, nil
}

func (a *ClickHouseSignalArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}
