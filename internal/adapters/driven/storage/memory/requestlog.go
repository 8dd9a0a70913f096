// Package memory provides in-memory store implementations, used when
// local persistence is unavailable and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure RequestLogStore implements the interface.
var _ driven.RequestLogStore = (*RequestLogStore)(nil)

// maxRecords bounds memory growth for long-running processes; the
// oldest records are dropped once the cap is reached.
const maxRecords = 1000

// RequestLogStore is an in-memory implementation of
// driven.RequestLogStore.
type RequestLogStore struct {
	mu      sync.RWMutex
	records map[string]domain.RequestRecord
	order   []string
}

// NewRequestLogStore creates a new in-memory request log.
func NewRequestLogStore() *RequestLogStore {
	return &RequestLogStore{
		records: make(map[string]domain.RequestRecord),
	}
}

// Record stores or updates one request record.
func (s *RequestLogStore) Record(_ context.Context, rec domain.RequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.RequestID]; !exists {
		s.order = append(s.order, rec.RequestID)
		if len(s.order) > maxRecords {
			delete(s.records, s.order[0])
			s.order = s.order[1:]
		}
	}
	s.records[rec.RequestID] = rec
	return nil
}

// Recent returns up to limit records, newest first.
func (s *RequestLogStore) Recent(_ context.Context, limit int) ([]domain.RequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RequestRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *RequestLogStore) Close() error {
	return nil
}
