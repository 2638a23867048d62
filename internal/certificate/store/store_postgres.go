package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"certitrack/internal/certificate/models"
	id "certitrack/pkg/domain"
	"certitrack/pkg/platform/sentinel"
	"certitrack/pkg/platform/tx"
)

// PostgresStore persists certificates in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
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

var certificateColumns = []string{
	"id", "asset_id", "tenant_id", "test_id", "certificate_number", "certificate_type",
	"issue_date", "expiry_date", "status", "document_hash",
	"signed_by", "signed_at", "inspector_name", "inspector_certification", "notes",
	"created_at", "updated_at",
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Certificate) error {
	query, args, err := s.sb.Insert("certificates").
		Columns(certificateColumns...).
		Values(
			c.ID.String(), c.AssetID.String(), c.TenantID.String(), nullTestID(c.TestID),
			c.CertificateNumber, string(c.Type),
			c.IssueDate, c.ExpiryDate, string(c.Status), c.DocumentHash,
			c.SignedBy, nullTime(c.SignedAt), c.InspectorName, c.InspectorCertification, c.Notes,
			c.CreatedAt, c.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert certificate: %w", err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	return s.findOne(ctx, sq.Eq{"id": certID.String()})
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	return s.findOne(ctx, sq.Eq{"certificate_number": number})
}

func (s *PostgresStore) findOne(ctx context.Context, where sq.Eq) (*models.Certificate, error) {
	query, args, err := s.sb.Select(certificateColumns...).
		From("certificates").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select certificate: %w", err)
	}
	c, err := scanCertificate(s.conn(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Certificate) error {
	query, args, err := s.sb.Update("certificates").
		Set("status", string(c.Status)).
		Set("document_hash", c.DocumentHash).
		Set("signed_by", c.SignedBy).
		Set("signed_at", nullTime(c.SignedAt)).
		Set("inspector_name", c.InspectorName).
		Set("inspector_certification", c.InspectorCertification).
		Set("notes", c.Notes).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update certificate: %w", err)
	}
	res, err := s.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.Certificate, error) {
	filter = filter.normalized()

	builder := s.sb.Select(certificateColumns...).From("certificates")
	if !filter.TenantID.IsNil() {
		builder = builder.Where(sq.Eq{"tenant_id": filter.TenantID.String()})
	}
	if !filter.AssetID.IsNil() {
		builder = builder.Where(sq.Eq{"asset_id": filter.AssetID.String()})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Type != "" {
		builder = builder.Where(sq.Eq{"certificate_type": string(filter.Type)})
	}
	if !filter.ExpiresBefore.IsZero() {
		builder = builder.
			Where(sq.Eq{"status": string(models.StatusIssued)}).
			Where(sq.LtOrEq{"expiry_date": filter.ExpiresBefore})
	}
	builder = builder.
		OrderBy("created_at DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list certificates: %w", err)
	}
	return s.queryCertificates(ctx, query, args...)
}

func (s *PostgresStore) ListIssuedByAsset(ctx context.Context, assetID id.AssetID) ([]*models.Certificate, error) {
	query, args, err := s.sb.Select(certificateColumns...).
		From("certificates").
		Where(sq.Eq{"asset_id": assetID.String()}).
		Where(sq.Eq{"status": string(models.StatusIssued)}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list issued certificates: %w", err)
	}
	return s.queryCertificates(ctx, query, args...)
}

func (s *PostgresStore) queryCertificates(ctx context.Context, query string, args ...any) ([]*models.Certificate, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	certs := make([]*models.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var (
		c                          models.Certificate
		rawID, rawAsset, rawTenant string
		rawTest                    sql.NullString
		certType, status           string
		signedAt                   sql.NullTime
	)
	err := row.Scan(
		&rawID, &rawAsset, &rawTenant, &rawTest, &c.CertificateNumber, &certType,
		&c.IssueDate, &c.ExpiryDate, &status, &c.DocumentHash,
		&c.SignedBy, &signedAt, &c.InspectorName, &c.InspectorCertification, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	certID, err := id.ParseCertificateID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse certificate id: %w", err)
	}
	assetID, err := id.ParseAssetID(rawAsset)
	if err != nil {
		return nil, fmt.Errorf("parse asset id: %w", err)
	}
	tenantID, err := id.ParseTenantID(rawTenant)
	if err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	c.ID = certID
	c.AssetID = assetID
	c.TenantID = tenantID
	if rawTest.Valid {
		testID, err := id.ParseTestID(rawTest.String)
		if err != nil {
			return nil, fmt.Errorf("parse test id: %w", err)
		}
		c.TestID = testID
	}
	c.Type = models.CertificateType(certType)
	c.Status = models.CertificateStatus(status)
	c.SignedAt = timePtr(signedAt)
	return &c, nil
}

func nullTestID(testID id.TestID) sql.NullString {
	if testID.IsNil() {
		return sql.NullString{}
	}
	return sql.NullString{String: testID.String(), Valid: true}
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
