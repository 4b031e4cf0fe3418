package schema

import (
	"github.com/fyrsmithlabs/veritas/internal/lang"
)

// Field names of the built-in schemas.
const (
	FieldVerdict     = "verdict"
	FieldScore       = "score"
	FieldRiskLevel   = "risk_level"
	FieldImpact      = "impact"
	FieldExplanation = "explanation"

	FieldIsDeepfake = "is_deepfake"
	FieldConfidence = "confidence"
	FieldIndicators = "indicators"
	FieldAnalysis   = "analysis"

	FieldReach     = "reach"
	FieldVelocity  = "velocity"
	FieldReasoning = "reasoning"
)

// Literal sets in canonical casing.
var (
	Verdicts   = []string{"FAKE", "PARTIAL", "TRUE"}
	RiskLevels = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}
	Velocities = []string{"Slow", "Moderate", "Viral", "Explosive"}
)

// Defaults for missing or unrecognized values.
const (
	DefaultVerdict   = "PARTIAL"
	DefaultRiskLevel = "MEDIUM"
	DefaultVelocity  = "Moderate"
	DefaultReach     = "Unknown"

	DefaultFactCheckScore = 50
)

var (
	factCheck = map[lang.Language]*Schema{}
	deepfake  = New("deepfake",
		Field{Name: FieldIsDeepfake, Label: "IS_DEEPFAKE", Kind: Bool, Capture: Line, Default: false, Truthy: []string{"YES", "TRUE"}, Hint: "[YES or NO]"},
		Field{Name: FieldConfidence, Label: "CONFIDENCE", Kind: Int, Capture: Line, Default: 0, Hint: "[0-100]"},
		Field{Name: FieldIndicators, Label: "INDICATORS", Kind: List, Capture: Line, Hint: "[List of specific visual artifacts found, comma separated]"},
		Field{Name: FieldAnalysis, Label: "ANALYSIS", Kind: Text, Capture: Rest, Default: "", RawFallback: true, Hint: "[Detailed technical analysis]"},
	)
	virality = New("virality",
		Field{Name: FieldScore, Label: "SCORE", Kind: Int, Capture: Line, Default: 0, Hint: "[0-100]"},
		Field{Name: FieldReach, Label: "REACH", Kind: Text, Capture: Line, Default: DefaultReach, Hint: "[e.g. 10k-50k people]"},
		Field{Name: FieldVelocity, Label: "VELOCITY", Kind: Enum, Capture: Line, Default: DefaultVelocity, Enum: Velocities, Hint: "[Slow, Moderate, Viral, Explosive]"},
		Field{Name: FieldReasoning, Label: "REASONING", Kind: Text, Capture: Rest, Default: "", RawFallback: true, Hint: "[Brief reason]"},
	)
)

func init() {
	for _, l := range lang.Supported() {
		factCheck[l] = New("fact_check",
			Field{Name: FieldVerdict, Label: "VERDICT", Kind: Enum, Capture: Line, Default: DefaultVerdict, Enum: Verdicts, Hint: "[FAKE, PARTIAL, or TRUE]"},
			Field{Name: FieldScore, Label: "SCORE", Kind: Int, Capture: Line, Default: DefaultFactCheckScore, Hint: "[0-100 integer]"},
			Field{Name: FieldRiskLevel, Label: "RISK_LEVEL", Kind: Enum, Capture: Line, Default: DefaultRiskLevel, Enum: RiskLevels, Hint: "[LOW, MEDIUM, HIGH, or CRITICAL]"},
			Field{Name: FieldImpact, Label: "IMPACT", Kind: Text, Capture: Block, Default: l.Text(lang.ImpactFallback), Hint: "[A short paragraph explaining the potential harm/risk]"},
			Field{Name: FieldExplanation, Label: "EXPLANATION", Kind: Text, Capture: Rest, Default: "", RawFallback: true, Hint: "[Detailed explanation of why it is fake/true citing discrepancies]"},
		)
	}
}

// FactCheck returns the fact-check schema for l. Only the IMPACT default
// differs between languages.
func FactCheck(l lang.Language) *Schema {
	if s, ok := factCheck[l]; ok {
		return s
	}
	return factCheck[lang.Default]
}

// Deepfake returns the deepfake-scan schema.
func Deepfake() *Schema {
	return deepfake
}

// Virality returns the virality-forecast schema.
func Virality() *Schema {
	return virality
}
