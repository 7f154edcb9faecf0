package store

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pool is the subset of pgxpool.Pool used by the store. pgxmock pools satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements RecordStore and AlertStore using pgxpool
type PostgresStore struct {
	pool      Pool
	closeFn   func()
	overwrite bool
	retention time.Duration
	logger    *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewPostgresStore creates a PostgresStore with a connection pool and applies the schema
func NewPostgresStore(ctx context.Context, connString string, opts Options, logger *zap.Logger) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	s := newPostgresStore(pool, opts, logger)
	s.closeFn = pool.Close
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.startCleanup(opts)
	return s, nil
}

func newPostgresStore(pool Pool, opts Options, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		pool:      pool,
		overwrite: opts.Overwrite,
		retention: opts.AlertRetention,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

func (s *PostgresStore) startCleanup(opts Options) {
	if opts.AlertRetention <= 0 || opts.CleanupFrequency <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		startCleanupTask(s, opts.CleanupFrequency, s.stopCh, s.logger)
	}()
}

// Migrate creates the records and alerts tables
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresDialect.schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
	}
	return nil
}

// Store inserts a record unless its content hash is already present
func (s *PostgresStore) Store(ctx context.Context, rec core.AnalyzedRecord) (bool, error) {
	args, err := recordArgs(rec)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, postgresDialect.insertNoop, args...)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert record")
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if s.overwrite {
		update := append(append([]any{}, args[1:]...), args[0])
		if _, err := s.pool.Exec(ctx, postgresDialect.updateRecord(), update...); err != nil {
			return false, eris.Wrap(err, "postgres: overwrite record")
		}
	}
	return false, nil
}

// Query returns matching records ordered by content hash
func (s *PostgresStore) Query(ctx context.Context, filter core.RecordFilter) ([]core.AnalyzedRecord, error) {
	q, args := postgresDialect.selectRecords(filter)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query records")
	}
	defer rows.Close()

	out := []core.AnalyzedRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate records")
	}
	return out, nil
}

// SaveAlert persists an alert
func (s *PostgresStore) SaveAlert(ctx context.Context, alert core.AlertRecord) error {
	if _, err := s.pool.Exec(ctx, postgresDialect.insertAlert(), alertArgs(alert)...); err != nil {
		return eris.Wrap(err, "postgres: insert alert")
	}
	return nil
}

// ListAlerts returns the most recent alerts first; limit <= 0 returns all
func (s *PostgresStore) ListAlerts(ctx context.Context, limit int) ([]core.AlertRecord, error) {
	q, args := postgresDialect.listAlerts(limit)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query alerts")
	}
	defer rows.Close()

	out := []core.AlertRecord{}
	for rows.Next() {
		var id, kind, source, severity string
		var raisedAt int64
		var payload []byte
		if err := rows.Scan(&id, &kind, &source, &severity, &raisedAt, &payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan alert")
		}
		out = append(out, alertFromRow(id, kind, source, severity, raisedAt, payload))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate alerts")
	}
	return out, nil
}

// Cleanup removes alerts older than the retention period
func (s *PostgresStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	tag, err := s.pool.Exec(ctx, postgresDialect.deleteAlertsBefore(), time.Now().Add(-s.retention).UnixNano())
	if err != nil {
		return eris.Wrap(err, "postgres: clean up alerts")
	}
	s.logger.Debug("Cleaned up expired alerts", zap.Int64("expired_count", tag.RowsAffected()))
	return nil
}

// Close stops the cleanup task and closes the pool
func (s *PostgresStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	if s.closeFn != nil {
		s.closeFn()
	} else {
		s.pool.Close()
	}
	return nil
}
