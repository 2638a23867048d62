package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"certitrack/internal/asset/models"
	id "certitrack/pkg/domain"
	"certitrack/pkg/platform/sentinel"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	TenantID id.TenantID
	Status   models.AssetStatus
	Category models.AssetCategory
	Type     models.AssetType
	// Search matches asset code or name, case-insensitive.
	Search string

	IncludeDeleted bool

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

// InMemoryStore keeps assets in a mutex-guarded map.
type InMemoryStore struct {
	mu     sync.RWMutex
	assets map[id.AssetID]models.Asset
}

// NewInMemory constructs an empty in-memory asset store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{assets: make(map[id.AssetID]models.Asset)}
}

// Create inserts an asset, enforcing per-tenant asset code uniqueness.
func (s *InMemoryStore) Create(_ context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assets {
		if existing.TenantID == asset.TenantID && !existing.IsDeleted &&
			strings.EqualFold(existing.AssetCode, asset.AssetCode) {
			return sentinel.ErrConflict
		}
	}
	s.assets[asset.ID] = *asset
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, assetID id.AssetID) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.assets[assetID]; ok {
		copied := a
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[asset.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.assets[asset.ID] = *asset
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*models.Asset, error) {
	filter = filter.normalized()

	s.mu.RLock()
	matched := make([]*models.Asset, 0)
	for _, a := range s.assets {
		if !matches(a, filter) {
			continue
		}
		copied := a
		matched = append(matched, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Page, filter.PageSize), nil
}

// ListExpiringWithin returns non-deleted assets whose certificate expiry
// falls in [from, to] inclusive, across all tenants. Used by the expiry
// scanner.
func (s *InMemoryStore) ListExpiringWithin(_ context.Context, from, to time.Time) ([]*models.Asset, error) {
	fromDate, toDate := id.Date(from), id.Date(to)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Asset, 0)
	for _, a := range s.assets {
		if a.IsDeleted || a.CertificateExpiryDate == nil {
			continue
		}
		expiry := id.Date(*a.CertificateExpiryDate)
		if expiry.Before(fromDate) || expiry.After(toDate) {
			continue
		}
		copied := a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CertificateExpiryDate.Before(*out[j].CertificateExpiryDate)
	})
	return out, nil
}

func matches(a models.Asset, f Filter) bool {
	if !f.IncludeDeleted && a.IsDeleted {
		return false
	}
	if !f.TenantID.IsNil() && a.TenantID != f.TenantID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(a.AssetCode), needle) &&
			!strings.Contains(strings.ToLower(a.Name), needle) {
			return false
		}
	}
	return true
}

func paginate(items []*models.Asset, page, pageSize int) []*models.Asset {
	offset := (page - 1) * pageSize
	if offset >= len(items) {
		return []*models.Asset{}
	}
	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
