package models

import (
	"time"

	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
)

// TestType is the kind of examination conducted.
type TestType string

const (
	TypeLoadTest    TestType = "load_test"
	TypeVisual      TestType = "visual_inspection"
	TypeFunctional  TestType = "functional_test"
	TypeNDT         TestType = "ndt"
	TypeCalibration TestType = "calibration"
	TypePeriodic    TestType = "periodic"
)

// TestStatus tracks the examination workflow. Completed and cancelled are
// terminal.
type TestStatus string

const (
	StatusScheduled  TestStatus = "scheduled"
	StatusInProgress TestStatus = "in_progress"
	StatusCompleted  TestStatus = "completed"
	StatusCancelled  TestStatus = "cancelled"
)

// CanTransitionTo reports whether the workflow permits moving to next.
func (s TestStatus) CanTransitionTo(next TestStatus) bool {
	switch s {
	case StatusScheduled:
		return next == StatusInProgress || next == StatusCompleted || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	default:
		// completed and cancelled are terminal
		return false
	}
}

// TestResult is the validation verdict. Pending until the validation engine
// has run.
type TestResult string

const (
	ResultPending     TestResult = "pending"
	ResultPass        TestResult = "pass"
	ResultFail        TestResult = "fail"
	ResultConditional TestResult = "conditional"
)

// DefaultTestLoadPercentage is the conventional proof-load margin over SWL.
const DefaultTestLoadPercentage = 125.0

// Test is one examination event on an asset.
//
// Invariants:
//   - Result may only be non-pending once IsValidated is true
//   - Status must be completed before validation runs
//   - A validated test is immutable except for administrative correction
type Test struct {
	ID       id.TestID   `json:"id"`
	AssetID  id.AssetID  `json:"asset_id"`
	TenantID id.TenantID `json:"tenant_id"`

	InspectorID id.UserID `json:"inspector_id,omitempty"`

	TestNumber string   `json:"test_number"`
	Type       TestType `json:"test_type"`

	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	Status TestStatus `json:"status"`
	Result TestResult `json:"result"`

	SafeWorkingLoad    float64 `json:"safe_working_load"`
	TestLoad           float64 `json:"test_load"`
	LoadUnit           string  `json:"load_unit"`
	TestLoadPercentage float64 `json:"test_load_percentage"`

	// MeasuredValues holds arbitrary instrument readings keyed by
	// measurement name (deflection, brake_test, indicator_accuracy, ...).
	MeasuredValues map[string]any `json:"measured_values,omitempty"`

	TestLocation    string `json:"test_location,omitempty"`
	Observations    string `json:"observations,omitempty"`
	DefectsFound    string `json:"defects_found,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`

	IsValidated bool       `json:"is_validated"`
	ValidatedBy string     `json:"validated_by,omitempty"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTest constructs a scheduled test with a minted number.
func NewTest(testID id.TestID, assetID id.AssetID, tenantID id.TenantID, number string, testType TestType, now time.Time) (*Test, error) {
	if assetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "test requires an asset")
	}
	if number == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "test requires a number")
	}
	if testType == "" {
		testType = TypeLoadTest
	}
	return &Test{
		ID:         testID,
		AssetID:    assetID,
		TenantID:   tenantID,
		TestNumber: number,
		Type:       testType,
		Status:     StatusScheduled,
		Result:     ResultPending,
		LoadUnit:   "ton",
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Start moves a scheduled test into progress.
func (t *Test) Start(now time.Time) error {
	if !t.Status.CanTransitionTo(StatusInProgress) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot start a %s test", t.Status)
	}
	t.Status = StatusInProgress
	t.StartedAt = &now
	t.UpdatedAt = now
	return nil
}

// CompletionParams carries the field-recorded outcome of an examination.
type CompletionParams struct {
	SafeWorkingLoad    float64
	TestLoad           float64
	LoadUnit           string
	TestLoadPercentage float64
	MeasuredValues     map[string]any
	TestLocation       string
	Observations       string
	DefectsFound       string
}

// Complete records measurements and closes the examination. The verdict
// stays pending until the validation engine runs.
func (t *Test) Complete(params CompletionParams, now time.Time) error {
	if !t.Status.CanTransitionTo(StatusCompleted) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot complete a %s test", t.Status)
	}
	if params.TestLoadPercentage == 0 {
		params.TestLoadPercentage = DefaultTestLoadPercentage
	}
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.SafeWorkingLoad = params.SafeWorkingLoad
	t.TestLoad = params.TestLoad
	if params.LoadUnit != "" {
		t.LoadUnit = params.LoadUnit
	}
	t.TestLoadPercentage = params.TestLoadPercentage
	t.MeasuredValues = params.MeasuredValues
	t.TestLocation = params.TestLocation
	t.Observations = params.Observations
	t.DefectsFound = params.DefectsFound
	t.UpdatedAt = now
	return nil
}

// Cancel terminates a test that will not be conducted.
func (t *Test) Cancel(now time.Time) error {
	if !t.Status.CanTransitionTo(StatusCancelled) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot cancel a %s test", t.Status)
	}
	t.Status = StatusCancelled
	t.UpdatedAt = now
	return nil
}

// CanValidate checks the validation preconditions.
func (t *Test) CanValidate() error {
	if t.Status != StatusCompleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "test must be completed before validation")
	}
	if t.IsValidated {
		return dErrors.New(dErrors.CodeConflict, "test has already been validated")
	}
	return nil
}

// ApplyValidation stamps the engine's verdict. Call CanValidate first.
func (t *Test) ApplyValidation(result TestResult, recommendations, validatedBy string, now time.Time) {
	t.Result = result
	t.Recommendations = recommendations
	t.IsValidated = true
	t.ValidatedBy = validatedBy
	t.ValidatedAt = &now
	t.UpdatedAt = now
}
