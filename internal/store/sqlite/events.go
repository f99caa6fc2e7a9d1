package sqlite

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/errors"
)

const eventColumns = "Id, AggregateId, AggregateType, CreatedTimeUtc, MachineName, Serialized"

// scanEnvelope scans an event row into an envelope, decoding the
// serialized event. Works with both sql.Row and sql.Rows.
func scanEnvelope(scanner interface{ Scan(dest ...any) error }) (domain.EventEnvelope, error) {
	var (
		env             domain.EventEnvelope
		id, aggregateID string
		createdTime     string
	)
	err := scanner.Scan(&id, &aggregateID, &env.AggregateType, &createdTime, &env.MachineName, &env.Serialized)
	if err != nil {
		return domain.EventEnvelope{}, err
	}

	if env.ID, err = uuid.Parse(id); err != nil {
		return domain.EventEnvelope{}, errors.Parsef(err, "event id %q", id)
	}
	if env.AggregateID, err = uuid.Parse(aggregateID); err != nil {
		return domain.EventEnvelope{}, errors.Parsef(err, "aggregate id %q in event %s", aggregateID, id)
	}
	if env.CreatedTimeUTC, err = parseTime(createdTime); err != nil {
		return domain.EventEnvelope{}, errors.Parsef(err, "created time %q in event %s", createdTime, id)
	}
	if env.Event, err = domain.UnmarshalEvent([]byte(env.Serialized)); err != nil {
		return domain.EventEnvelope{}, errors.Parsef(err, "serialized event %s", id)
	}

	return env, nil
}

// Append writes a single envelope to the log. Appending an event ID
// that already exists is a no-op, so retried writes are safe.
func (s *Store) Append(ctx context.Context, env domain.EventEnvelope) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		env.ID.String(),
		env.AggregateID.String(),
		env.AggregateType,
		formatTime(env.CreatedTimeUTC),
		env.MachineName,
		env.Serialized,
	)
	if err != nil {
		return errors.Storagef(err, "append event %s", env.ID)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("event already stored, skipping",
			slog.String("event_id", env.ID.String()))
	}
	return nil
}

// AppendMissing inserts every envelope whose event ID is not already in
// the log, all within one transaction. Either every missing event lands
// or none do. Returns the number of events actually inserted. Dedup is
// done by the insert itself, so two overlapping merges of the same batch
// cannot collide on the primary key.
func (s *Store) AppendMissing(ctx context.Context, envelopes []domain.EventEnvelope) (int, error) {
	if len(envelopes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Storage(err, "begin merge transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, errors.Storage(err, "prepare merge insert")
	}
	defer stmt.Close()

	inserted := 0
	for _, env := range envelopes {
		res, err := stmt.ExecContext(ctx,
			env.ID.String(),
			env.AggregateID.String(),
			env.AggregateType,
			formatTime(env.CreatedTimeUTC),
			env.MachineName,
			env.Serialized,
		)
		if err != nil {
			return 0, errors.Storagef(err, "insert event %s", env.ID)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Storage(err, "commit merge transaction")
	}
	return inserted, nil
}

// LoadAllOrdered reads the full item event history, oldest first. A row
// that fails to decode aborts the whole load; a partially applied
// history would silently drop events.
func (s *Store) LoadAllOrdered(ctx context.Context) ([]domain.EventEnvelope, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE AggregateType = ? ORDER BY CreatedTimeUtc",
		domain.AggregateTypeLibraryItem)
	if err != nil {
		return nil, errors.Storage(err, "query events")
	}
	defer rows.Close()

	var envelopes []domain.EventEnvelope
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			if errors.Is(err, errors.ErrParse) {
				return nil, err
			}
			return nil, errors.Storage(err, "scan event row")
		}
		envelopes = append(envelopes, env)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(err, "iterate event rows")
	}

	return envelopes, nil
}

// AllEvents reads every event row regardless of aggregate type, oldest
// first. Used for replication, which must carry foreign aggregates too.
func (s *Store) AllEvents(ctx context.Context) ([]domain.EventEnvelope, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events ORDER BY CreatedTimeUtc")
	if err != nil {
		return nil, errors.Storage(err, "query events")
	}
	defer rows.Close()

	var envelopes []domain.EventEnvelope
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			if errors.Is(err, errors.ErrParse) {
				return nil, err
			}
			return nil, errors.Storage(err, "scan event row")
		}
		envelopes = append(envelopes, env)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(err, "iterate event rows")
	}

	return envelopes, nil
}

// EventIDs returns the set of all stored event IDs.
func (s *Store) EventIDs(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT Id FROM events")
	if err != nil {
		return nil, errors.Storage(err, "query event ids")
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Storage(err, "scan event id")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Parsef(err, "event id %q", raw)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(err, "iterate event ids")
	}

	return ids, nil
}

// ContainsEvent reports whether an event ID is already stored.
func (s *Store) ContainsEvent(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE Id = ?", id.String()).Scan(&count)
	if err != nil {
		return false, errors.Storagef(err, "check event %s", id)
	}
	return count > 0, nil
}

// CountEvents returns the total number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, errors.Storage(err, "count events")
	}
	return count, nil
}

// RecentEvents returns the newest item events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]domain.EventEnvelope, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE AggregateType = ? ORDER BY CreatedTimeUtc DESC LIMIT ?",
		domain.AggregateTypeLibraryItem, limit)
	if err != nil {
		return nil, errors.Storage(err, "query recent events")
	}
	defer rows.Close()

	var envelopes []domain.EventEnvelope
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			if errors.Is(err, errors.ErrParse) {
				return nil, err
			}
			return nil, errors.Storage(err, "scan event row")
		}
		envelopes = append(envelopes, env)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(err, "iterate event rows")
	}

	return envelopes, nil
}
