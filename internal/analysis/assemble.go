package analysis

import (
	"github.com/fyrsmithlabs/veritas/internal/grounding"
	"github.com/fyrsmithlabs/veritas/internal/schema"
)

// AssembleFactCheck maps extracted fact-check fields and sources to a result.
// A nil sources slice is reported as empty.
func AssembleFactCheck(v schema.Values, sources []grounding.Source) AnalysisResult {
	if sources == nil {
		sources = []grounding.Source{}
	}
	return AnalysisResult{
		Score:       v.Int(schema.FieldScore),
		Verdict:     Verdict(v.Text(schema.FieldVerdict)),
		RiskLevel:   RiskLevel(v.Text(schema.FieldRiskLevel)),
		RiskImpact:  v.Text(schema.FieldImpact),
		Explanation: v.Text(schema.FieldExplanation),
		Sources:     sources,
	}
}

// AssembleDeepfake maps extracted deepfake-scan fields to a result.
func AssembleDeepfake(v schema.Values) DeepfakeResult {
	return DeepfakeResult{
		IsDeepfake:        v.Bool(schema.FieldIsDeepfake),
		Confidence:        v.Int(schema.FieldConfidence),
		Indicators:        v.List(schema.FieldIndicators),
		TechnicalAnalysis: v.Text(schema.FieldAnalysis),
	}
}

// AssembleVirality maps extracted virality fields to a prediction.
func AssembleVirality(v schema.Values) ViralityPrediction {
	return ViralityPrediction{
		ViralityScore:  v.Int(schema.FieldScore),
		EstimatedReach: v.Text(schema.FieldReach),
		Velocity:       Velocity(v.Text(schema.FieldVelocity)),
		Reasoning:      v.Text(schema.FieldReasoning),
	}
}
