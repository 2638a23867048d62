//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certitrack/internal/asset/models"
	id "certitrack/pkg/domain"
	"certitrack/pkg/platform/sentinel"
	"certitrack/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgres(pg.DB)
	ctx := context.Background()

	now := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	tenantID := id.NewTenantID()

	mk := func(code string) *models.Asset {
		asset, err := models.NewAsset(id.NewAssetID(), tenantID, code, "Asset "+code,
			models.CategoryLifting, models.TypeCrane, 10, "ton", now)
		require.NoError(t, err)
		now = now.Add(time.Minute)
		return asset
	}

	asset := mk("CRN-001")
	asset.Manufacturer = "Liebherr"
	require.NoError(t, store.Create(ctx, asset))

	t.Run("round trips through the schema", func(t *testing.T) {
		found, err := store.FindByID(ctx, asset.ID)
		require.NoError(t, err)
		assert.Equal(t, asset.AssetCode, found.AssetCode)
		assert.Equal(t, "Liebherr", found.Manufacturer)
		assert.Equal(t, models.StatusActive, found.Status)
		assert.Nil(t, found.CertificateExpiryDate)
	})

	t.Run("duplicate code in tenant conflicts", func(t *testing.T) {
		err := store.Create(ctx, mk("CRN-001"))
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("update persists certification dates", func(t *testing.T) {
		issue := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
		asset.ApplyCertification(issue, issue.AddDate(1, 0, 0), now)
		require.NoError(t, store.Update(ctx, asset))

		found, err := store.FindByID(ctx, asset.ID)
		require.NoError(t, err)
		require.NotNil(t, found.CertificateExpiryDate)
		assert.True(t, found.CertificateExpiryDate.Equal(issue.AddDate(1, 0, 0)))
		require.NotNil(t, found.NextInspectionDate)
	})

	t.Run("list filters by tenant and search", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, mk("HST-001")))

		assets, err := store.List(ctx, Filter{TenantID: tenantID, Search: "hst"})
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, "HST-001", assets[0].AssetCode)

		assets, err = store.List(ctx, Filter{TenantID: id.NewTenantID()})
		require.NoError(t, err)
		assert.Empty(t, assets)
	})

	t.Run("expiring window is inclusive and skips deleted", func(t *testing.T) {
		in := mk("EXP-IN")
		expiry := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
		in.CertificateExpiryDate = &expiry
		require.NoError(t, store.Create(ctx, in))

		out := mk("EXP-OUT")
		far := expiry.AddDate(0, 1, 0)
		out.CertificateExpiryDate = &far
		require.NoError(t, store.Create(ctx, out))

		gone := mk("EXP-DEL")
		gone.CertificateExpiryDate = &expiry
		require.NoError(t, store.Create(ctx, gone))
		require.NoError(t, gone.SoftDelete(now))
		require.NoError(t, store.Update(ctx, gone))

		from := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
		assets, err := store.ListExpiringWithin(ctx, from, expiry)
		require.NoError(t, err)

		codes := make([]string, 0, len(assets))
		for _, a := range assets {
			codes = append(codes, a.AssetCode)
		}
		assert.Contains(t, codes, "EXP-IN")
		assert.NotContains(t, codes, "EXP-OUT")
		assert.NotContains(t, codes, "EXP-DEL")
		assert.NotContains(t, codes, "CRN-001", "certified earlier asset expires outside this window")
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		_, err := store.FindByID(ctx, id.NewAssetID())
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
