package alerts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certitrack/internal/asset/models"
	"certitrack/internal/asset/store"
	"certitrack/internal/audit"
	id "certitrack/pkg/domain"
)

var anchor = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

func seedAsset(t *testing.T, assets *store.InMemoryStore, tenantID id.TenantID, code string, expiry *time.Time) *models.Asset {
	t.Helper()
	asset, err := models.NewAsset(id.NewAssetID(), tenantID, code, "Asset "+code,
		models.CategoryLifting, models.TypeCrane, 10, "ton", anchor)
	require.NoError(t, err)
	asset.CertificateExpiryDate = expiry
	require.NoError(t, assets.Create(context.Background(), asset))
	return asset
}

func datePtr(t time.Time) *time.Time {
	d := id.Date(t)
	return &d
}

func TestScanWindow(t *testing.T) {
	assets := store.NewInMemory()
	tenantID := id.NewTenantID()

	seedAsset(t, assets, tenantID, "EDGE-0", datePtr(anchor))
	seedAsset(t, assets, tenantID, "IN-15", datePtr(anchor.AddDate(0, 0, 15)))
	seedAsset(t, assets, tenantID, "EDGE-30", datePtr(anchor.AddDate(0, 0, 30)))
	seedAsset(t, assets, tenantID, "OUT-31", datePtr(anchor.AddDate(0, 0, 31)))
	seedAsset(t, assets, tenantID, "EXPIRED", datePtr(anchor.AddDate(0, 0, -1)))
	seedAsset(t, assets, tenantID, "NO-CERT", nil)

	grouped, err := NewScanner(assets).Scan(context.Background(), anchor, 30)
	require.NoError(t, err)
	require.Len(t, grouped, 1)

	alerts := grouped[tenantID]
	require.Len(t, alerts, 3)

	t.Run("sorted by days remaining", func(t *testing.T) {
		assert.Equal(t, "EDGE-0", alerts[0].AssetCode)
		assert.Equal(t, 0, alerts[0].DaysRemaining)
		assert.Equal(t, "IN-15", alerts[1].AssetCode)
		assert.Equal(t, 15, alerts[1].DaysRemaining)
		assert.Equal(t, "EDGE-30", alerts[2].AssetCode)
		assert.Equal(t, 30, alerts[2].DaysRemaining)
	})
}

func TestScanGroupsByTenant(t *testing.T) {
	assets := store.NewInMemory()
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()

	seedAsset(t, assets, tenantA, "A-1", datePtr(anchor.AddDate(0, 0, 5)))
	seedAsset(t, assets, tenantA, "A-2", datePtr(anchor.AddDate(0, 0, 2)))
	seedAsset(t, assets, tenantB, "B-1", datePtr(anchor.AddDate(0, 0, 7)))

	grouped, err := NewScanner(assets).Scan(context.Background(), anchor, 30)
	require.NoError(t, err)

	require.Len(t, grouped, 2)
	assert.Len(t, grouped[tenantA], 2)
	assert.Len(t, grouped[tenantB], 1)
	assert.Equal(t, "A-2", grouped[tenantA][0].AssetCode)
}

func TestScanDefaultsHorizon(t *testing.T) {
	assets := store.NewInMemory()
	tenantID := id.NewTenantID()
	seedAsset(t, assets, tenantID, "IN-30", datePtr(anchor.AddDate(0, 0, 30)))
	seedAsset(t, assets, tenantID, "OUT-31", datePtr(anchor.AddDate(0, 0, 31)))

	grouped, err := NewScanner(assets).Scan(context.Background(), anchor, 0)
	require.NoError(t, err)
	require.Len(t, grouped[tenantID], 1)
	assert.Equal(t, "IN-30", grouped[tenantID][0].AssetCode)
}

func TestScanIsRepeatable(t *testing.T) {
	assets := store.NewInMemory()
	tenantID := id.NewTenantID()
	seedAsset(t, assets, tenantID, "IN-5", datePtr(anchor.AddDate(0, 0, 5)))

	scanner := NewScanner(assets)
	first, err := scanner.Scan(context.Background(), anchor, 30)
	require.NoError(t, err)
	second, err := scanner.Scan(context.Background(), anchor, 30)
	require.NoError(t, err)

	assert.Equal(t, first, second, "assets still inside the horizon alert again")
}

type captureNotifier struct {
	mu       sync.Mutex
	received map[id.TenantID][]Alert
	done     chan struct{}
	once     sync.Once
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{
		received: make(map[id.TenantID][]Alert),
		done:     make(chan struct{}),
	}
}

func (n *captureNotifier) Notify(_ context.Context, tenantID id.TenantID, alerts []Alert) error {
	n.mu.Lock()
	n.received[tenantID] = alerts
	n.mu.Unlock()
	n.once.Do(func() { close(n.done) })
	return nil
}

func TestWorkerNotifiesOnStartup(t *testing.T) {
	assets := store.NewInMemory()
	tenantID := id.NewTenantID()
	expiry := id.Date(time.Now().UTC()).AddDate(0, 0, 10)
	seedAsset(t, assets, tenantID, "SOON", &expiry)

	notifier := newCaptureNotifier()
	auditLog := audit.NewInMemoryStore()
	worker := NewWorker(NewScanner(assets), notifier, nil, 30, time.Hour,
		WithAuditor(audit.NewPublisher(auditLog)))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- worker.Run(ctx) }()

	select {
	case <-notifier.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never delivered the startup scan")
	}
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)

	notifier.mu.Lock()
	require.Len(t, notifier.received[tenantID], 1)
	assert.Equal(t, "SOON", notifier.received[tenantID][0].AssetCode)
	notifier.mu.Unlock()

	events, err := auditLog.ListByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionExpiryAlert, events[0].Action)
	assert.Equal(t, "SOON", events[0].EntityID)
	assert.Equal(t, "system", events[0].ActorName)
}
