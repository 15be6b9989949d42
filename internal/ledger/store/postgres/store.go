// Package postgres provides the durable event log store. The table is
// append-only; rows are never updated or deleted, and tender/bid/actor tables
// are rebuilt from it on startup instead of being persisted themselves.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"tenderledger/internal/ledger"
	"tenderledger/pkg/domain"
	txcontext "tenderledger/pkg/platform/tx"
)

// Store implements ledger.Store on top of PostgreSQL.
//
// Sequence numbers are computed inside the append transaction rather than via
// a serial column: serials leave gaps on rollback, and the log must stay
// gapless. The engine runs a single logical writer, and the primary key on seq
// turns any violation of that assumption into a hard conflict instead of a
// silent gap.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) querier(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, events ...ledger.Event) ([]ledger.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	// Join a caller-managed transaction when present, otherwise open one so
	// the batch commits atomically.
	if _, ok := txcontext.From(ctx); ok {
		return s.appendIn(ctx, s.querier(ctx), events)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append tx: %w", err)
	}
	stamped, err := s.appendIn(ctx, tx, events)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append tx: %w", err)
	}
	return stamped, nil
}

func (s *Store) appendIn(ctx context.Context, q querier, events []ledger.Event) ([]ledger.Event, error) {
	var last uint64
	if err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM tender_events`,
	).Scan(&last); err != nil {
		return nil, fmt.Errorf("read last seq: %w", err)
	}

	stamped := make([]ledger.Event, len(events))
	for i, e := range events {
		e.Seq = last + uint64(i) + 1
		if _, err := q.ExecContext(ctx,
			`INSERT INTO tender_events (seq, type, tender_id, actor_id, payload, ts)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.Seq, string(e.Type), uint64(e.TenderID), string(e.ActorID), []byte(e.Payload), e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("insert event seq %d: %w", e.Seq, err)
		}
		stamped[i] = e
	}
	return stamped, nil
}

func (s *Store) List(ctx context.Context, fromSeq uint64, limit int) ([]ledger.Event, error) {
	query := `SELECT seq, type, tender_id, actor_id, payload, ts
	          FROM tender_events WHERE seq >= $1 ORDER BY seq ASC`
	args := []any{fromSeq}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		var (
			e        ledger.Event
			typ      string
			tenderID uint64
			actorID  string
			payload  []byte
		)
		if err := rows.Scan(&e.Seq, &typ, &tenderID, &actorID, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = ledger.EventType(typ)
		e.TenderID = domain.TenderID(tenderID)
		e.ActorID = domain.ActorID(actorID)
		e.Payload = payload
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	var last uint64
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM tender_events`,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return last, nil
}
