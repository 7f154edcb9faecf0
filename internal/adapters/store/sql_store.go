package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

// SQLStore is a database/sql implementation of the RecordStore and AlertStore
// interfaces, shared by the SQLite and MySQL backends
type SQLStore struct {
	db        *sql.DB
	d         dialect
	overwrite bool
	retention time.Duration
	logger    *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func newSQLStore(db *sql.DB, d dialect, opts Options, logger *zap.Logger) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}

	s := &SQLStore{
		db:        db,
		d:         d,
		overwrite: opts.Overwrite,
		retention: opts.AlertRetention,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}

	if opts.AlertRetention > 0 && opts.CleanupFrequency > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			startCleanupTask(s, opts.CleanupFrequency, s.stopCh, logger)
		}()
	}
	return s, nil
}

// Store inserts a record unless its content hash is already present
func (s *SQLStore) Store(ctx context.Context, rec core.AnalyzedRecord) (bool, error) {
	args, err := recordArgs(rec)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, s.d.insertNoop, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	if s.overwrite {
		update := append(append([]any{}, args[1:]...), args[0])
		if _, err := s.db.ExecContext(ctx, s.d.updateRecord(), update...); err != nil {
			return false, fmt.Errorf("failed to overwrite record: %w", err)
		}
	}
	return false, nil
}

// Query returns matching records ordered by content hash
func (s *SQLStore) Query(ctx context.Context, filter core.RecordFilter) ([]core.AnalyzedRecord, error) {
	q, args := s.d.selectRecords(filter)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := []core.AnalyzedRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

// SaveAlert persists an alert
func (s *SQLStore) SaveAlert(ctx context.Context, alert core.AlertRecord) error {
	if _, err := s.db.ExecContext(ctx, s.d.insertAlert(), alertArgs(alert)...); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// ListAlerts returns the most recent alerts first; limit <= 0 returns all
func (s *SQLStore) ListAlerts(ctx context.Context, limit int) ([]core.AlertRecord, error) {
	q, args := s.d.listAlerts(limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	out := []core.AlertRecord{}
	for rows.Next() {
		var id, kind, source, severity string
		var raisedAt int64
		var payload []byte
		if err := rows.Scan(&id, &kind, &source, &severity, &raisedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, alertFromRow(id, kind, source, severity, raisedAt, payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return out, nil
}

// Cleanup removes alerts older than the retention period
func (s *SQLStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-s.retention).UnixNano()

	result, err := s.db.ExecContext(ctx, s.d.deleteAlertsBefore(), cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up expired alerts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired alerts", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Close stops the background cleanup task and closes the database connection
func (s *SQLStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.d.name, err)
	}
	return nil
}
