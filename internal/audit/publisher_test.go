package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "certitrack/pkg/domain"
	"certitrack/pkg/testutil"
)

func TestEmitBackfillsFromContext(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	now := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	tenantID := id.NewTenantID()
	userID := id.NewUserID()
	ctx := testutil.FrozenContext(testutil.ActorContext(tenantID, userID, "Dana Inspector"), now)

	require.NoError(t, publisher.Emit(ctx, Event{
		Action:   ActionCertificateIssued,
		EntityID: "CERT-202506-00001",
		Detail:   "load_test",
	}))

	events, err := store.ListByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, tenantID, e.TenantID)
	assert.Equal(t, userID.String(), e.ActorID)
	assert.Equal(t, "Dana Inspector", e.ActorName)
	assert.Equal(t, ActionCertificateIssued, e.Action)
}

func TestEmitKeepsExplicitFields(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	tenantID := id.NewTenantID()
	stamped := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	ctx := testutil.FrozenContext(testutil.ActorContext(id.NewTenantID(), id.NewUserID(), "Someone Else"),
		time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC))

	require.NoError(t, publisher.Emit(ctx, Event{
		Timestamp: stamped,
		TenantID:  tenantID,
		ActorName: "system",
		Action:    ActionExpiryAlert,
		EntityID:  "CRN-001",
	}))

	events, err := store.ListByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stamped, events[0].Timestamp)
	assert.Equal(t, "system", events[0].ActorName)
}

func TestListByTenantFiltersAndSorts(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()
	base := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, Event{Timestamp: base.Add(time.Hour), TenantID: tenantA, Action: ActionTestValidated, EntityID: "TST-2"}))
	require.NoError(t, store.Append(ctx, Event{Timestamp: base, TenantID: tenantA, Action: ActionTestCreated, EntityID: "TST-1"}))
	require.NoError(t, store.Append(ctx, Event{Timestamp: base, TenantID: tenantB, Action: ActionAssetDeleted, EntityID: "CRN-9"}))

	events, err := store.ListByTenant(ctx, tenantA)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "TST-1", events[0].EntityID)
	assert.Equal(t, "TST-2", events[1].EntityID)

	other, err := store.ListByTenant(ctx, tenantB)
	require.NoError(t, err)
	require.Len(t, other, 1)
}
