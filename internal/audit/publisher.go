package audit

import (
	"context"
	"sort"
	"sync"

	id "certitrack/pkg/domain"
	"certitrack/pkg/requestcontext"
)

// Store is the append-only persistence port for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit records one event, filling actor and timestamp from the request
// context when the caller left them blank.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = requestcontext.Now(ctx)
	}
	if base.TenantID.IsNil() {
		base.TenantID = requestcontext.TenantID(ctx)
	}
	if base.ActorID == "" {
		if userID := requestcontext.UserID(ctx); !userID.IsNil() {
			base.ActorID = userID.String()
		}
	}
	if base.ActorName == "" {
		base.ActorName = requestcontext.ActorName(ctx)
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, tenantID id.TenantID) ([]Event, error) {
	return p.store.ListByTenant(ctx, tenantID)
}

// InMemoryStore is the test and single-node sink.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]Event, 0)
	for _, e := range s.events {
		if e.TenantID == tenantID {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	return matched, nil
}
