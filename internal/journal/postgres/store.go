// Package postgres provides a Postgres-backed journal sink.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stablepool/internal/model"
)

// Store persists event records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Append inserts a batch of event records.
func (s *Store) Append(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		attrs, err := json.Marshal(event.Attrs)
		if err != nil {
			return fmt.Errorf("marshal attrs for %s: %w", event.Op, err)
		}
		batch.Queue(`
			INSERT INTO pool_events (op, attrs, event_ts, created_at)
			VALUES ($1, $2, to_timestamp($3), now())
		`,
			event.Op,
			attrs,
			event.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LastEvent returns the most recent journaled record, if any.
func (s *Store) LastEvent(ctx context.Context) (model.EventRecord, bool, error) {
	var (
		event model.EventRecord
		attrs []byte
	)
	row := s.pool.QueryRow(ctx, `
		SELECT op, attrs, extract(epoch FROM event_ts)::bigint
		FROM pool_events ORDER BY id DESC LIMIT 1
	`)
	if err := row.Scan(&event.Op, &attrs, &event.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.EventRecord{}, false, nil
		}
		return model.EventRecord{}, false, err
	}
	if err := json.Unmarshal(attrs, &event.Attrs); err != nil {
		return model.EventRecord{}, false, fmt.Errorf("unmarshal attrs: %w", err)
	}
	return event, true, nil
}
