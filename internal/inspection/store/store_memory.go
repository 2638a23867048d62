package store

import (
	"context"
	"sort"
	"sync"

	"certitrack/internal/inspection/models"
	id "certitrack/pkg/domain"
	"certitrack/pkg/platform/sentinel"
)

// Filter narrows test listings.
type Filter struct {
	TenantID id.TenantID
	AssetID  id.AssetID
	Status   models.TestStatus
	Result   models.TestResult
	Type     models.TestType
	Page     int
	PageSize int
}

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return f
}

func (f Filter) matches(t *models.Test) bool {
	if !f.TenantID.IsNil() && t.TenantID != f.TenantID {
		return false
	}
	if !f.AssetID.IsNil() && t.AssetID != f.AssetID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Result != "" && t.Result != f.Result {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}

// InMemoryStore keeps tests in a map. Test fixture and single-node fallback.
type InMemoryStore struct {
	mu    sync.RWMutex
	tests map[id.TestID]*models.Test
}

// NewInMemory creates an empty in-memory test store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{tests: make(map[id.TestID]*models.Test)}
}

func (s *InMemoryStore) Create(_ context.Context, t *models.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[t.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.tests {
		if existing.TestNumber == t.TestNumber {
			return sentinel.ErrConflict
		}
	}
	cp := *t
	s.tests[t.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, testID id.TestID) (*models.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[testID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, t *models.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *t
	s.tests[t.ID] = &cp
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*models.Test, error) {
	filter = filter.normalized()

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Test, 0)
	for _, t := range s.tests {
		if filter.matches(t) {
			cp := *t
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return []*models.Test{}, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}
