package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"certitrack/internal/certificate/models"
	id "certitrack/pkg/domain"
	"certitrack/pkg/platform/sentinel"
)

// Filter narrows certificate listings.
type Filter struct {
	TenantID id.TenantID
	AssetID  id.AssetID
	Status   models.CertificateStatus
	Type     models.CertificateType
	// ExpiresBefore keeps only issued certificates expiring on or before the
	// given date. Set from the expiring-soon query.
	ExpiresBefore time.Time
	Page          int
	PageSize      int
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

func (f Filter) matches(c *models.Certificate) bool {
	if !f.TenantID.IsNil() && c.TenantID != f.TenantID {
		return false
	}
	if !f.AssetID.IsNil() && c.AssetID != f.AssetID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if !f.ExpiresBefore.IsZero() {
		if c.Status != models.StatusIssued || c.ExpiryDate.After(f.ExpiresBefore) {
			return false
		}
	}
	return true
}

// InMemoryStore keeps certificates in a map. Test fixture and single-node
// fallback.
type InMemoryStore struct {
	mu    sync.RWMutex
	certs map[id.CertificateID]*models.Certificate
}

// NewInMemory creates an empty in-memory certificate store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{certs: make(map[id.CertificateID]*models.Certificate)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[c.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.certs {
		if existing.CertificateNumber == c.CertificateNumber {
			return sentinel.ErrConflict
		}
	}
	cp := *c
	s.certs[c.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certs[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) FindByNumber(_ context.Context, number string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.certs {
		if c.CertificateNumber == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, c *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *c
	s.certs[c.ID] = &cp
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*models.Certificate, error) {
	filter = filter.normalized()

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Certificate, 0)
	for _, c := range s.certs {
		if filter.matches(c) {
			cp := *c
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return []*models.Certificate{}, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// ListIssuedByAsset returns every certificate currently in issued state for
// an asset, oldest first. Used to supersede prior issues.
func (s *InMemoryStore) ListIssuedByAsset(_ context.Context, assetID id.AssetID) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Certificate, 0)
	for _, c := range s.certs {
		if c.AssetID == assetID && c.Status == models.StatusIssued {
			cp := *c
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}
