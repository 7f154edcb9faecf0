package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the RecordStore and AlertStore interfaces
type MemoryStore struct {
	records   map[string]core.AnalyzedRecord
	alerts    []core.AlertRecord
	mu        sync.RWMutex
	overwrite bool
	retention time.Duration
	logger    *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewMemoryStore creates a new in-memory store. Alerts older than retention are
// removed every cleanupFreq; a zero duration disables the cleanup task.
func NewMemoryStore(logger *zap.Logger, overwrite bool, retention, cleanupFreq time.Duration) *MemoryStore {
	s := &MemoryStore{
		records:   make(map[string]core.AnalyzedRecord),
		overwrite: overwrite,
		retention: retention,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}

	if retention > 0 && cleanupFreq > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			startCleanupTask(s, cleanupFreq, s.stopCh, logger)
		}()
	}

	return s
}

// Store saves a record keyed by content hash
func (s *MemoryStore) Store(ctx context.Context, rec core.AnalyzedRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := rec.Record.ContentHash
	if _, ok := s.records[hash]; ok {
		if s.overwrite {
			s.records[hash] = rec
		}
		return false, nil
	}
	s.records[hash] = rec
	return true, nil
}

// Query returns matching records ordered by content hash
func (s *MemoryStore) Query(ctx context.Context, filter core.RecordFilter) ([]core.AnalyzedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.AnalyzedRecord{}
	for _, rec := range s.records {
		if filter.Matches(&rec.Record) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Record.ContentHash < out[j].Record.ContentHash
	})
	return out, nil
}

// SaveAlert appends an alert
func (s *MemoryStore) SaveAlert(ctx context.Context, alert core.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, alert)
	return nil
}

// ListAlerts returns the most recent alerts first; limit <= 0 returns all
func (s *MemoryStore) ListAlerts(ctx context.Context, limit int) ([]core.AlertRecord, error) {
	s.mu.RLock()
	out := append([]core.AlertRecord{}, s.alerts...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RaisedAt.Equal(out[j].RaisedAt) {
			return out[i].RaisedAt.After(out[j].RaisedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup removes alerts older than the retention period
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	expired := 0
	for _, a := range s.alerts {
		if a.RaisedAt.Before(cutoff) {
			expired++
			continue
		}
		kept = append(kept, a)
	}
	s.alerts = kept

	s.logger.Debug("Cleaned up expired alerts", zap.Int("expired_count", expired))
	return nil
}

// Close stops the background cleanup task
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	return nil
}

type cleaner interface {
	Cleanup(ctx context.Context) error
}

// startCleanupTask runs Cleanup on every tick until stopCh is closed
func startCleanupTask(c cleaner, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up alerts", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
