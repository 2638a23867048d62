package validation

import (
	"math"
	"strings"

	"certitrack/internal/inspection/models"
)

// Outcome is the aggregated verdict of the rule pipeline.
type Outcome struct {
	Result          models.TestResult `json:"result"`
	Details         map[string]Check  `json:"details"`
	Summary         Summary           `json:"summary"`
	Recommendations string            `json:"recommendations,omitempty"`
}

// Summary counts applicable checks and the share that passed.
type Summary struct {
	ChecksPassed   int     `json:"checks_passed"`
	TotalChecks    int     `json:"total_checks"`
	PassPercentage float64 `json:"pass_percentage"`
}

// criticalChecks force an overall fail regardless of the pass percentage.
// A structure that dropped its proof load or a brake that slipped is never
// conditionally acceptable.
var criticalChecks = []string{"load_check", "brake_check", "deformation_check"}

// Engine runs an ordered rule pipeline over a completed examination.
type Engine struct {
	rules []Rule
}

// NewEngine builds the standard pipeline. Load and visual checks always
// apply; the rest engage when their measurement was recorded.
func NewEngine() *Engine {
	return &Engine{
		rules: []Rule{
			loadRule{},
			deflectionRule{},
			visualRule{},
			deformationRule{},
			brakeRule{},
			accuracyRule{},
		},
	}
}

// Validate evaluates every applicable rule and derives the overall verdict:
// all checks passing is a pass, at least 75% passing with no outright
// failures is conditional, anything else fails. A failed critical check
// overrides to fail.
func (e *Engine) Validate(in Input) Outcome {
	details := make(map[string]Check)
	var recommendations []string
	passed, total := 0, 0

	for _, rule := range e.rules {
		if !rule.Applies(in) {
			continue
		}
		total++
		check, rec := rule.Evaluate(in)
		details[rule.Name()] = check
		if check.Status == StatusPass {
			passed++
		}
		if rec != "" {
			recommendations = append(recommendations, rec)
		}
	}

	passPct := 0.0
	if total > 0 {
		passPct = float64(passed) / float64(total) * 100
	}

	var result models.TestResult
	switch {
	case passPct == 100:
		result = models.ResultPass
	case passPct >= 75 && !anyFailed(details):
		result = models.ResultConditional
	default:
		result = models.ResultFail
	}

	for _, name := range criticalChecks {
		if check, ok := details[name]; ok && check.Status == StatusFail {
			result = models.ResultFail
			break
		}
	}

	return Outcome{
		Result:  result,
		Details: details,
		Summary: Summary{
			ChecksPassed:   passed,
			TotalChecks:    total,
			PassPercentage: math.Round(passPct*10) / 10,
		},
		Recommendations: strings.Join(recommendations, "\n"),
	}
}

func anyFailed(details map[string]Check) bool {
	for _, check := range details {
		if check.Status == StatusFail {
			return true
		}
	}
	return false
}

// RequiredTestLoad returns the proof load an examination must reach for a
// given SWL. The conventional margin is 125%.
func RequiredTestLoad(swl, percentage float64) float64 {
	if percentage == 0 {
		percentage = models.DefaultTestLoadPercentage
	}
	return swl * percentage / 100
}
