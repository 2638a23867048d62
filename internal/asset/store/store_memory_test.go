package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certitrack/internal/asset/models"
	id "certitrack/pkg/domain"
	"certitrack/pkg/platform/sentinel"
)

type AssetStoreSuite struct {
	suite.Suite
	store    *InMemoryStore
	ctx      context.Context
	tenantID id.TenantID
	now      time.Time
}

func (s *AssetStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.tenantID = id.NewTenantID()
	s.now = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
}

func TestAssetStoreSuite(t *testing.T) {
	suite.Run(t, new(AssetStoreSuite))
}

func (s *AssetStoreSuite) newAsset(code string) *models.Asset {
	asset, err := models.NewAsset(id.NewAssetID(), s.tenantID, code, "Asset "+code,
		models.CategoryLifting, models.TypeCrane, 10, "ton", s.now)
	s.Require().NoError(err)
	// keep listing order deterministic
	s.now = s.now.Add(time.Minute)
	return asset
}

func (s *AssetStoreSuite) TestCreateAndFind() {
	asset := s.newAsset("CRN-001")
	s.Require().NoError(s.store.Create(s.ctx, asset))

	found, err := s.store.FindByID(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(asset.AssetCode, found.AssetCode)

	s.Run("unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewAssetID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AssetStoreSuite) TestCodeUniquenessPerTenant() {
	s.Require().NoError(s.store.Create(s.ctx, s.newAsset("CRN-001")))

	s.Run("duplicate code in same tenant conflicts", func() {
		err := s.store.Create(s.ctx, s.newAsset("CRN-001"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("same code in another tenant is fine", func() {
		other, err := models.NewAsset(id.NewAssetID(), id.NewTenantID(), "CRN-001", "Other",
			models.CategoryLifting, models.TypeCrane, 5, "ton", s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Create(s.ctx, other))
	})
}

func (s *AssetStoreSuite) TestListFiltersAndPagination() {
	for i := 1; i <= 25; i++ {
		s.Require().NoError(s.store.Create(s.ctx, s.newAsset(fmt.Sprintf("CRN-%03d", i))))
	}

	s.Run("default page size is 20", func() {
		assets, err := s.store.List(s.ctx, Filter{TenantID: s.tenantID})
		s.Require().NoError(err)
		s.Len(assets, 20)
	})

	s.Run("newest first", func() {
		assets, err := s.store.List(s.ctx, Filter{TenantID: s.tenantID, PageSize: 1})
		s.Require().NoError(err)
		s.Require().Len(assets, 1)
		s.Equal("CRN-025", assets[0].AssetCode)
	})

	s.Run("second page holds the remainder", func() {
		assets, err := s.store.List(s.ctx, Filter{TenantID: s.tenantID, Page: 2, PageSize: 20})
		s.Require().NoError(err)
		s.Len(assets, 5)
	})

	s.Run("search matches code and name", func() {
		assets, err := s.store.List(s.ctx, Filter{TenantID: s.tenantID, Search: "crn-007"})
		s.Require().NoError(err)
		s.Require().Len(assets, 1)
		s.Equal("CRN-007", assets[0].AssetCode)
	})

	s.Run("other tenants see nothing", func() {
		assets, err := s.store.List(s.ctx, Filter{TenantID: id.NewTenantID()})
		s.Require().NoError(err)
		s.Empty(assets)
	})
}

func (s *AssetStoreSuite) TestDeletedAssetsHiddenFromListings() {
	asset := s.newAsset("CRN-001")
	s.Require().NoError(s.store.Create(s.ctx, asset))
	s.Require().NoError(asset.SoftDelete(s.now))
	s.Require().NoError(s.store.Update(s.ctx, asset))

	assets, err := s.store.List(s.ctx, Filter{TenantID: s.tenantID})
	s.Require().NoError(err)
	s.Empty(assets)

	s.Run("still readable by id", func() {
		found, err := s.store.FindByID(s.ctx, asset.ID)
		s.Require().NoError(err)
		s.True(found.IsDeleted)
	})
}

func (s *AssetStoreSuite) TestListExpiringWithin() {
	mkExpiring := func(code string, days int) *models.Asset {
		asset := s.newAsset(code)
		expiry := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
		asset.CertificateExpiryDate = &expiry
		s.Require().NoError(s.store.Create(s.ctx, asset))
		return asset
	}
	mkExpiring("IN-10", 10)
	mkExpiring("IN-30", 30)
	mkExpiring("OUT-31", 31)
	mkExpiring("PAST", -1)
	s.Require().NoError(s.store.Create(s.ctx, s.newAsset("NO-CERT")))

	from := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	assets, err := s.store.ListExpiringWithin(s.ctx, from, from.AddDate(0, 0, 30))
	s.Require().NoError(err)

	codes := make([]string, 0, len(assets))
	for _, a := range assets {
		codes = append(codes, a.AssetCode)
	}
	s.ElementsMatch(codes, []string{"IN-10", "IN-30"})
}
