package formatting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanAnalysisWithMarker(t *testing.T) {
	raw := "We need to analyze the last three runs first.\n\n### Recent Training Pattern\n- Two easy runs"
	out := CleanAnalysis(raw, "### Recent Training Pattern")
	assert.Equal(t, "### Recent Training Pattern\n- Two easy runs", out)
}

func TestCleanAnalysisFallsBackToHeader(t *testing.T) {
	raw := "Let me think about this.\n## Run Summary\n5k in 25:00"
	out := CleanAnalysis(raw)
	assert.Equal(t, "## Run Summary\n5k in 25:00", out)
}

func TestCleanAnalysisNoStructure(t *testing.T) {
	raw := "Keep your easy runs easy. Confidence: generic guidance."
	assert.Equal(t, raw, CleanAnalysis(raw))
}

func TestCleanAnalysisAlreadyClean(t *testing.T) {
	raw := "## Run Summary\nSolid effort."
	assert.Equal(t, raw, CleanAnalysis(raw, "## Run Summary"))
}
