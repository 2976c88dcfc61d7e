package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

// MockJournal keeps bundle records in memory
type MockJournal struct {
	mu      sync.RWMutex
	records map[string]*domain.BundleRecord
	order   []string
	now     func() time.Time
}

var _ ports.BundleJournal = (*MockJournal)(nil)

// NewMockJournal creates an empty journal
func NewMockJournal() *MockJournal {
	return &MockJournal{
		records: make(map[string]*domain.BundleRecord),
		now:     time.Now,
	}
}

func (m *MockJournal) Record(ctx context.Context, bundle domain.Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, ok := m.records[bundle.ID]; !ok {
		m.order = append(m.order, bundle.ID)
	}
	m.records[bundle.ID] = &domain.BundleRecord{
		ID:          bundle.ID,
		Files:       bundle.Files,
		FailedFiles: bundle.FailedFiles,
		Status:      domain.BundleStaged,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (m *MockJournal) MarkConsumed(ctx context.Context, bundleID, projectID string) error {
	return m.setStatus(bundleID, domain.BundleConsumed, projectID)
}

func (m *MockJournal) MarkDiscarded(ctx context.Context, bundleID string) error {
	return m.setStatus(bundleID, domain.BundleDiscarded, "")
}

func (m *MockJournal) setStatus(id string, status domain.BundleStatus, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("bundle not journaled: %s", id)
	}
	r.Status = status
	if projectID != "" {
		r.ProjectID = projectID
	}
	r.UpdatedAt = m.now()
	return nil
}

func (m *MockJournal) List(ctx context.Context, status domain.BundleStatus) ([]domain.BundleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.BundleRecord
	for _, id := range m.order {
		r := m.records[id]
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *MockJournal) Staged(ctx context.Context, olderThan time.Duration) ([]domain.BundleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-olderThan)
	var out []domain.BundleRecord
	for _, id := range m.order {
		r := m.records[id]
		if r.Status == domain.BundleStaged && !r.CreatedAt.After(cutoff) {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Status returns the journaled status of a bundle, or "" if unknown
func (m *MockJournal) Status(id string) domain.BundleStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[id]; ok {
		return r.Status
	}
	return ""
}
