package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Status is the verdict of a single check.
type Status string

const (
	StatusPass        Status = "pass"
	StatusFail        Status = "fail"
	StatusConditional Status = "conditional"
)

// Check is one named check's outcome.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Input is everything a completed examination exposes to the rule pipeline.
type Input struct {
	SafeWorkingLoad    float64
	TestLoad           float64
	TestLoadPercentage float64
	Measured           map[string]any
	DefectsFound       string
}

// Rule is a single validation check. Applies gates conditional checks on the
// presence of their measurement; Evaluate returns the check outcome and an
// optional recommendation.
type Rule interface {
	Name() string
	Applies(in Input) bool
	Evaluate(in Input) (Check, string)
}

// loadRule verifies the proof load reached the required percentage of SWL,
// with a 5% instrument tolerance. Always applies.
type loadRule struct{}

func (loadRule) Name() string          { return "load_check" }
func (loadRule) Applies(in Input) bool { return true }

func (loadRule) Evaluate(in Input) (Check, string) {
	pct := in.TestLoadPercentage
	if pct == 0 {
		pct = 125
	}
	expected := in.SafeWorkingLoad * pct / 100
	if in.TestLoad >= expected*0.95 {
		return Check{
			Status:  StatusPass,
			Message: fmt.Sprintf("Test load (%s) meets requirement (%.2f)", num(in.TestLoad), expected),
		}, ""
	}
	return Check{
		Status:  StatusFail,
		Message: fmt.Sprintf("Test load (%s) below requirement (%.2f)", num(in.TestLoad), expected),
	}, "Ensure test load is at least 125% of SWL"
}

// deflectionRule compares measured deflection against the recorded limit.
// Unbounded when no limit was supplied.
type deflectionRule struct{}

func (deflectionRule) Name() string          { return "deflection_check" }
func (deflectionRule) Applies(in Input) bool { return hasMeasurement(in.Measured, "deflection") }

func (deflectionRule) Evaluate(in Input) (Check, string) {
	deflection, _ := measurement(in.Measured, "deflection")
	limit, ok := measurement(in.Measured, "max_deflection")
	if !ok {
		limit = math.Inf(1)
	}
	if deflection <= limit {
		return Check{
			Status:  StatusPass,
			Message: fmt.Sprintf("Deflection (%s) within limit (%s)", num(deflection), num(limit)),
		}, ""
	}
	return Check{
		Status:  StatusFail,
		Message: fmt.Sprintf("Deflection (%s) exceeds limit (%s)", num(deflection), num(limit)),
	}, "Excessive deflection detected - investigate structural integrity"
}

// visualRule downgrades the verdict when the inspector noted defects. Always
// applies.
type visualRule struct{}

func (visualRule) Name() string          { return "visual_check" }
func (visualRule) Applies(in Input) bool { return true }

func (visualRule) Evaluate(in Input) (Check, string) {
	if strings.TrimSpace(in.DefectsFound) != "" {
		return Check{
			Status:  StatusConditional,
			Message: fmt.Sprintf("Defects noted: %s...", truncate(in.DefectsFound, 100)),
		}, "Address noted defects before certification"
	}
	return Check{
		Status:  StatusPass,
		Message: "No defects found during visual inspection",
	}, ""
}

// deformationRule checks permanent deformation against a 0.25% default limit.
type deformationRule struct{}

func (deformationRule) Name() string { return "deformation_check" }
func (deformationRule) Applies(in Input) bool {
	return hasMeasurement(in.Measured, "permanent_deformation")
}

func (deformationRule) Evaluate(in Input) (Check, string) {
	deformation, _ := measurement(in.Measured, "permanent_deformation")
	limit, ok := measurement(in.Measured, "max_permanent_deformation")
	if !ok {
		limit = 0.25
	}
	if deformation <= limit {
		return Check{
			Status:  StatusPass,
			Message: fmt.Sprintf("Permanent deformation (%s%%) within limit (%s%%)", num(deformation), num(limit)),
		}, ""
	}
	return Check{
		Status:  StatusFail,
		Message: fmt.Sprintf("Permanent deformation (%s%%) exceeds limit (%s%%)", num(deformation), num(limit)),
	}, "Permanent deformation exceeds acceptable limits - equipment may be compromised"
}

// brakeRule is a binary holding-brake check for cranes and hoists.
type brakeRule struct{}

func (brakeRule) Name() string          { return "brake_check" }
func (brakeRule) Applies(in Input) bool { return hasMeasurement(in.Measured, "brake_test") }

func (brakeRule) Evaluate(in Input) (Check, string) {
	if truthy(in.Measured["brake_test"]) {
		return Check{Status: StatusPass, Message: "Brake test passed"}, ""
	}
	return Check{Status: StatusFail, Message: "Brake test failed"},
		"Brake system requires immediate attention"
}

// accuracyRule checks load-indicator accuracy against a 0.5% default
// tolerance.
type accuracyRule struct{}

func (accuracyRule) Name() string          { return "accuracy_check" }
func (accuracyRule) Applies(in Input) bool { return hasMeasurement(in.Measured, "indicator_accuracy") }

func (accuracyRule) Evaluate(in Input) (Check, string) {
	accuracy, _ := measurement(in.Measured, "indicator_accuracy")
	tolerance, ok := measurement(in.Measured, "accuracy_tolerance")
	if !ok {
		tolerance = 0.5
	}
	if accuracy <= tolerance {
		return Check{
			Status:  StatusPass,
			Message: fmt.Sprintf("Indicator accuracy (%s%%) within tolerance (%s%%)", num(accuracy), num(tolerance)),
		}, ""
	}
	return Check{
		Status:  StatusFail,
		Message: fmt.Sprintf("Indicator accuracy (%s%%) outside tolerance (%s%%)", num(accuracy), num(tolerance)),
	}, "Load indicator requires calibration"
}

func hasMeasurement(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// measurement coerces a recorded value to float64. JSON decoding hands us
// float64, but tests and callers constructing maps directly may use ints.
func measurement(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		return b == "true" || b == "pass" || b == "ok"
	default:
		return false
	}
}

func num(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
