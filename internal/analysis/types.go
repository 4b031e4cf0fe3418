// Package analysis runs fact-check, deepfake and virality requests against
// the generative endpoint and assembles the typed results.
package analysis

import (
	"errors"

	"github.com/fyrsmithlabs/veritas/internal/grounding"
)

// ErrOperationFailed is returned when the endpoint call behind a fact-check
// or deepfake scan fails. The underlying error is wrapped alongside it.
var ErrOperationFailed = errors.New("analysis failed")

// ErrEmptyInput is returned when there is nothing to analyze.
var ErrEmptyInput = errors.New("nothing to analyze")

// Verdict is the fact-check outcome.
type Verdict string

const (
	VerdictFake    Verdict = "FAKE"
	VerdictPartial Verdict = "PARTIAL"
	VerdictTrue    Verdict = "TRUE"
)

// RiskLevel grades the potential harm of a claim.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Velocity is how quickly content is expected to spread.
type Velocity string

const (
	VelocitySlow      Velocity = "Slow"
	VelocityModerate  Velocity = "Moderate"
	VelocityViral     Velocity = "Viral"
	VelocityExplosive Velocity = "Explosive"
)

// AnalysisResult is the outcome of a fact-check.
type AnalysisResult struct {
	Score       int                `json:"score"`
	Verdict     Verdict            `json:"verdict"`
	RiskLevel   RiskLevel          `json:"riskLevel"`
	RiskImpact  string             `json:"riskImpact"`
	Explanation string             `json:"explanation"`
	Sources     []grounding.Source `json:"sources"`
}

// DeepfakeResult is the outcome of an image scan.
type DeepfakeResult struct {
	IsDeepfake        bool     `json:"isDeepfake"`
	Confidence        int      `json:"confidence"`
	Indicators        []string `json:"indicators"`
	TechnicalAnalysis string   `json:"technicalAnalysis"`
}

// ViralityPrediction is the outcome of a virality forecast.
type ViralityPrediction struct {
	ViralityScore  int      `json:"viralityScore"`
	EstimatedReach string   `json:"estimatedReach"`
	Velocity       Velocity `json:"velocity"`
	Reasoning      string   `json:"reasoning"`
}

// ClaimReport combines a fact-check with a virality forecast of the same text.
type ClaimReport struct {
	Analysis AnalysisResult     `json:"analysis"`
	Virality ViralityPrediction `json:"virality"`
}
