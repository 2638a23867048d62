package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"certitrack/internal/asset/models"
	id "certitrack/pkg/domain"
	"certitrack/pkg/platform/sentinel"
	"certitrack/pkg/platform/tx"
)

// PostgresStore persists assets in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewPostgres constructs a PostgreSQL-backed asset store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the context transaction when one is open, otherwise the pool.
func (s *PostgresStore) conn(ctx context.Context) dbtx {
	if txn, ok := tx.From(ctx); ok {
		return txn
	}
	return s.db
}

var assetColumns = []string{
	"id", "tenant_id", "asset_code", "name", "description", "category", "asset_type",
	"manufacturer", "model", "serial_number", "year_manufactured",
	"safe_working_load", "swl_unit", "location", "site", "qr_data", "status",
	"last_inspection_date", "next_inspection_date", "certificate_expiry_date",
	"is_deleted", "deleted_at", "created_at", "updated_at",
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Asset) error {
	query, args, err := s.sb.Insert("assets").
		Columns(assetColumns...).
		Values(
			a.ID.String(), a.TenantID.String(), a.AssetCode, a.Name, a.Description,
			string(a.Category), string(a.Type),
			a.Manufacturer, a.Model, a.SerialNumber, a.YearManufactured,
			a.SafeWorkingLoad, a.SWLUnit, a.Location, a.Site, a.QRData, string(a.Status),
			nullTime(a.LastInspectionDate), nullTime(a.NextInspectionDate), nullTime(a.CertificateExpiryDate),
			a.IsDeleted, nullTime(a.DeletedAt), a.CreatedAt, a.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert asset: %w", err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, assetID id.AssetID) (*models.Asset, error) {
	query, args, err := s.sb.Select(assetColumns...).
		From("assets").
		Where(sq.Eq{"id": assetID.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select asset: %w", err)
	}
	a, err := scanAsset(s.conn(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find asset by id: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Asset) error {
	query, args, err := s.sb.Update("assets").
		Set("asset_code", a.AssetCode).
		Set("name", a.Name).
		Set("description", a.Description).
		Set("category", string(a.Category)).
		Set("asset_type", string(a.Type)).
		Set("manufacturer", a.Manufacturer).
		Set("model", a.Model).
		Set("serial_number", a.SerialNumber).
		Set("year_manufactured", a.YearManufactured).
		Set("safe_working_load", a.SafeWorkingLoad).
		Set("swl_unit", a.SWLUnit).
		Set("location", a.Location).
		Set("site", a.Site).
		Set("qr_data", a.QRData).
		Set("status", string(a.Status)).
		Set("last_inspection_date", nullTime(a.LastInspectionDate)).
		Set("next_inspection_date", nullTime(a.NextInspectionDate)).
		Set("certificate_expiry_date", nullTime(a.CertificateExpiryDate)).
		Set("is_deleted", a.IsDeleted).
		Set("deleted_at", nullTime(a.DeletedAt)).
		Set("updated_at", a.UpdatedAt).
		Where(sq.Eq{"id": a.ID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update asset: %w", err)
	}
	res, err := s.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.Asset, error) {
	filter = filter.normalized()

	builder := s.sb.Select(assetColumns...).From("assets")
	if !filter.IncludeDeleted {
		builder = builder.Where(sq.Eq{"is_deleted": false})
	}
	if !filter.TenantID.IsNil() {
		builder = builder.Where(sq.Eq{"tenant_id": filter.TenantID.String()})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"category": string(filter.Category)})
	}
	if filter.Type != "" {
		builder = builder.Where(sq.Eq{"asset_type": string(filter.Type)})
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"asset_code": like},
			sq.ILike{"name": like},
		})
	}
	builder = builder.
		OrderBy("created_at DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list assets: %w", err)
	}
	return s.queryAssets(ctx, query, args...)
}

func (s *PostgresStore) ListExpiringWithin(ctx context.Context, from, to time.Time) ([]*models.Asset, error) {
	query, args, err := s.sb.Select(assetColumns...).
		From("assets").
		Where(sq.Eq{"is_deleted": false}).
		Where(sq.GtOrEq{"certificate_expiry_date": id.Date(from)}).
		Where(sq.LtOrEq{"certificate_expiry_date": id.Date(to)}).
		OrderBy("certificate_expiry_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list expiring assets: %w", err)
	}
	return s.queryAssets(ctx, query, args...)
}

func (s *PostgresStore) queryAssets(ctx context.Context, query string, args ...any) ([]*models.Asset, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	assets := make([]*models.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var (
		a                     models.Asset
		rawID, rawTenant      string
		category, assetType   string
		status                string
		lastInsp, nextInsp    sql.NullTime
		certExpiry, deletedAt sql.NullTime
	)
	err := row.Scan(
		&rawID, &rawTenant, &a.AssetCode, &a.Name, &a.Description, &category, &assetType,
		&a.Manufacturer, &a.Model, &a.SerialNumber, &a.YearManufactured,
		&a.SafeWorkingLoad, &a.SWLUnit, &a.Location, &a.Site, &a.QRData, &status,
		&lastInsp, &nextInsp, &certExpiry,
		&a.IsDeleted, &deletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	assetID, err := id.ParseAssetID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse asset id: %w", err)
	}
	tenantID, err := id.ParseTenantID(rawTenant)
	if err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	a.ID = assetID
	a.TenantID = tenantID
	a.Category = models.AssetCategory(category)
	a.Type = models.AssetType(assetType)
	a.Status = models.AssetStatus(status)
	a.LastInspectionDate = timePtr(lastInsp)
	a.NextInspectionDate = timePtr(nextInsp)
	a.CertificateExpiryDate = timePtr(certExpiry)
	a.DeletedAt = timePtr(deletedAt)
	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
