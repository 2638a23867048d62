package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"certitrack/internal/inspection/models"
	id "certitrack/pkg/domain"
	"certitrack/pkg/platform/sentinel"
)

// PostgresStore persists tests in PostgreSQL. Measured values live in a
// jsonb column.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewPostgres constructs a PostgreSQL-backed test store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var testColumns = []string{
	"id", "asset_id", "tenant_id", "inspector_id", "test_number", "test_type",
	"scheduled_date", "started_at", "completed_at", "status", "result",
	"safe_working_load", "test_load", "load_unit", "test_load_percentage",
	"measured_values", "test_location", "observations", "defects_found", "recommendations",
	"is_validated", "validated_by", "validated_at",
	"created_at", "updated_at",
}

func (s *PostgresStore) Create(ctx context.Context, t *models.Test) error {
	measured, err := marshalMeasured(t.MeasuredValues)
	if err != nil {
		return err
	}
	query, args, err := s.sb.Insert("tests").
		Columns(testColumns...).
		Values(
			t.ID.String(), t.AssetID.String(), t.TenantID.String(), nullID(t.InspectorID),
			t.TestNumber, string(t.Type),
			nullTime(t.ScheduledDate), nullTime(t.StartedAt), nullTime(t.CompletedAt),
			string(t.Status), string(t.Result),
			t.SafeWorkingLoad, t.TestLoad, t.LoadUnit, t.TestLoadPercentage,
			measured, t.TestLocation, t.Observations, t.DefectsFound, t.Recommendations,
			t.IsValidated, t.ValidatedBy, nullTime(t.ValidatedAt),
			t.CreatedAt, t.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert test: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert test: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, testID id.TestID) (*models.Test, error) {
	query, args, err := s.sb.Select(testColumns...).
		From("tests").
		Where(sq.Eq{"id": testID.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select test: %w", err)
	}
	t, err := scanTest(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find test by id: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Update(ctx context.Context, t *models.Test) error {
	measured, err := marshalMeasured(t.MeasuredValues)
	if err != nil {
		return err
	}
	query, args, err := s.sb.Update("tests").
		Set("inspector_id", nullID(t.InspectorID)).
		Set("test_type", string(t.Type)).
		Set("scheduled_date", nullTime(t.ScheduledDate)).
		Set("started_at", nullTime(t.StartedAt)).
		Set("completed_at", nullTime(t.CompletedAt)).
		Set("status", string(t.Status)).
		Set("result", string(t.Result)).
		Set("safe_working_load", t.SafeWorkingLoad).
		Set("test_load", t.TestLoad).
		Set("load_unit", t.LoadUnit).
		Set("test_load_percentage", t.TestLoadPercentage).
		Set("measured_values", measured).
		Set("test_location", t.TestLocation).
		Set("observations", t.Observations).
		Set("defects_found", t.DefectsFound).
		Set("recommendations", t.Recommendations).
		Set("is_validated", t.IsValidated).
		Set("validated_by", t.ValidatedBy).
		Set("validated_at", nullTime(t.ValidatedAt)).
		Set("updated_at", t.UpdatedAt).
		Where(sq.Eq{"id": t.ID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update test: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update test: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.Test, error) {
	filter = filter.normalized()

	builder := s.sb.Select(testColumns...).From("tests")
	if !filter.TenantID.IsNil() {
		builder = builder.Where(sq.Eq{"tenant_id": filter.TenantID.String()})
	}
	if !filter.AssetID.IsNil() {
		builder = builder.Where(sq.Eq{"asset_id": filter.AssetID.String()})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Result != "" {
		builder = builder.Where(sq.Eq{"result": string(filter.Result)})
	}
	if filter.Type != "" {
		builder = builder.Where(sq.Eq{"test_type": string(filter.Type)})
	}
	builder = builder.
		OrderBy("created_at DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tests: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tests: %w", err)
	}
	defer rows.Close()

	tests := make([]*models.Test, 0)
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (*models.Test, error) {
	var (
		t                             models.Test
		rawID, rawAsset, rawTenant    string
		rawInspector                  sql.NullString
		testType, status, result      string
		scheduled, started, completed sql.NullTime
		validatedAt                   sql.NullTime
		measured                      []byte
	)
	err := row.Scan(
		&rawID, &rawAsset, &rawTenant, &rawInspector, &t.TestNumber, &testType,
		&scheduled, &started, &completed, &status, &result,
		&t.SafeWorkingLoad, &t.TestLoad, &t.LoadUnit, &t.TestLoadPercentage,
		&measured, &t.TestLocation, &t.Observations, &t.DefectsFound, &t.Recommendations,
		&t.IsValidated, &t.ValidatedBy, &validatedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	testID, err := id.ParseTestID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse test id: %w", err)
	}
	assetID, err := id.ParseAssetID(rawAsset)
	if err != nil {
		return nil, fmt.Errorf("parse asset id: %w", err)
	}
	tenantID, err := id.ParseTenantID(rawTenant)
	if err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	t.ID = testID
	t.AssetID = assetID
	t.TenantID = tenantID
	if rawInspector.Valid {
		inspectorID, err := id.ParseUserID(rawInspector.String)
		if err != nil {
			return nil, fmt.Errorf("parse inspector id: %w", err)
		}
		t.InspectorID = inspectorID
	}
	t.Type = models.TestType(testType)
	t.Status = models.TestStatus(status)
	t.Result = models.TestResult(result)
	t.ScheduledDate = timePtr(scheduled)
	t.StartedAt = timePtr(started)
	t.CompletedAt = timePtr(completed)
	t.ValidatedAt = timePtr(validatedAt)
	if len(measured) > 0 {
		if err := json.Unmarshal(measured, &t.MeasuredValues); err != nil {
			return nil, fmt.Errorf("decode measured values: %w", err)
		}
	}
	return &t, nil
}

func marshalMeasured(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode measured values: %w", err)
	}
	return b, nil
}

func nullID(userID id.UserID) sql.NullString {
	if userID.IsNil() {
		return sql.NullString{}
	}
	return sql.NullString{String: userID.String(), Valid: true}
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
