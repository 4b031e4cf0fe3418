package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/veritas/internal/lang"
	"github.com/fyrsmithlabs/veritas/internal/schema"
)

func TestAssembleFactCheck_NilSources(t *testing.T) {
	v := schema.FactCheck(lang.English).Extract("VERDICT: TRUE\nSCORE: 90")
	got := AssembleFactCheck(v, nil)

	assert.Equal(t, VerdictTrue, got.Verdict)
	assert.Equal(t, 90, got.Score)
	assert.NotNil(t, got.Sources)
}

func TestResultJSONFieldNames(t *testing.T) {
	b, err := json.Marshal(ClaimReport{
		Analysis: AssembleFactCheck(schema.FactCheck(lang.English).Extract(""), nil),
		Virality: AssembleVirality(schema.Virality().Extract("")),
	})
	require.NoError(t, err)

	var m map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{"score", "verdict", "riskLevel", "riskImpact", "explanation", "sources"} {
		assert.Contains(t, m["analysis"], key)
	}
	for _, key := range []string{"viralityScore", "estimatedReach", "velocity", "reasoning"} {
		assert.Contains(t, m["virality"], key)
	}
	assert.Equal(t, []any{}, m["analysis"]["sources"])

	b, err = json.Marshal(AssembleDeepfake(schema.Deepfake().Extract("")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"isDeepfake":false,"confidence":0,"indicators":[],"technicalAnalysis":""}`, string(b))
}
