package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glizzus/radio-relay/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StreamLister interface {
	List(ctx context.Context) ([]catalog.Stream, error)
}

type StreamPersister interface {
	Save(ctx context.Context, stream catalog.Stream) error
	Delete(ctx context.Context, streamKey string) (bool, error)
}

type PostgresStreamRepository struct {
	db *pgxpool.Pool
}

func NewPostgresStreamRepository(db *pgxpool.Pool) *PostgresStreamRepository {
	return &PostgresStreamRepository{db: db}
}

func streamToRowParams(stream catalog.Stream) []any {
	style := stream.Style
	if style == "" {
		style = catalog.StylePrimary
	}
	return []any{
		stream.Key,
		stream.Label,
		stream.URL,
		stream.Emoji,
		style,
		stream.Row,
	}
}

// List returns the stored streams ordered by panel row, then insertion order.
func (r *PostgresStreamRepository) List(ctx context.Context) ([]catalog.Stream, error) {
	const query = `
	SELECT stream_key, label, url, emoji, style, row_index
	FROM streams
	ORDER BY row_index, position, stream_key
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query streams: %w", err)
	}

	streams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Stream, error) {
		var s catalog.Stream
		err := row.Scan(&s.Key, &s.Label, &s.URL, &s.Emoji, &s.Style, &s.Row)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan streams: %w", err)
	}
	return streams, nil
}

// Save inserts or updates a stream. New streams go to the end of their row.
func (r *PostgresStreamRepository) Save(ctx context.Context, stream catalog.Stream) error {
	if err := catalog.Validate(stream); err != nil {
		return fmt.Errorf("invalid stream: %w", err)
	}

	const query = `
	INSERT INTO streams (stream_key, label, url, emoji, style, row_index, position)
	VALUES ($1, $2, $3, $4, $5, $6, (SELECT COALESCE(MAX(position) + 1, 0) FROM streams))
	ON CONFLICT (stream_key) DO UPDATE SET
		label = EXCLUDED.label,
		url = EXCLUDED.url,
		emoji = EXCLUDED.emoji,
		style = EXCLUDED.style,
		row_index = EXCLUDED.row_index,
		updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, streamToRowParams(stream)...); err != nil {
		return fmt.Errorf("failed to save stream %s: %w", stream.Key, err)
	}
	return nil
}

// Delete removes a stream and reports whether it existed.
func (r *PostgresStreamRepository) Delete(ctx context.Context, streamKey string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM streams WHERE stream_key = $1`, streamKey)
	if err != nil {
		return false, fmt.Errorf("failed to delete stream %s: %w", streamKey, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Import replaces the stored streams with streams, keeping their order.
func (r *PostgresStreamRepository) Import(ctx context.Context, streams []catalog.Stream) error {
	if _, err := catalog.New(streams); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	const insert = `
	INSERT INTO streams (stream_key, label, url, emoji, style, row_index, position)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM streams`); err != nil {
		return fmt.Errorf("failed to clear streams: %w", err)
	}

	batch := &pgx.Batch{}
	for i, s := range streams {
		batch.Queue(insert, append(streamToRowParams(s), i)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert streams: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var (
	_ StreamLister    = (*PostgresStreamRepository)(nil)
	_ StreamPersister = (*PostgresStreamRepository)(nil)
)
