package feedback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiresim/interview-evaluator/internal/feedback"
)

func TestParse_TwoSections(t *testing.T) {
	raw := "# Structure and Clarity\n" +
		"### Positive Aspects\n" +
		"- Clear framing of the problem\n" +
		"- Logical ordering\n" +
		"### Areas for Improvement\n" +
		"- Missed the success metrics\n" +
		"### Actionable Recommendations\n" +
		"- Lead with the metric you will move\n" +
		"\n" +
		"# Market Understanding\n" +
		"### Positive Aspects\n" +
		"- Named the main competitor\n"

	got := feedback.Parse(raw)
	require.Len(t, got, 2)

	assert.Equal(t, "Structure and Clarity", got[0].Title)
	assert.Equal(t, []string{"Clear framing of the problem", "Logical ordering"}, got[0].Positive)
	assert.Equal(t, []string{"Missed the success metrics"}, got[0].Improvement)
	assert.Equal(t, []string{"Lead with the metric you will move"}, got[0].Recommendations)

	assert.Equal(t, "Market Understanding", got[1].Title)
	assert.Equal(t, []string{"Named the main competitor"}, got[1].Positive)
	assert.Empty(t, got[1].Improvement)
	assert.Empty(t, got[1].Recommendations)
}

func TestParse_EmptyInput(t *testing.T) {
	assert.Empty(t, feedback.Parse(""))
	assert.Empty(t, feedback.Parse("   \n\n  "))
}

func TestParse_NoHeaders(t *testing.T) {
	got := feedback.Parse("thanks for your answer, here are my thoughts\n- be concise\n")
	assert.Empty(t, got)
}

func TestParse_BucketIsolation(t *testing.T) {
	got := feedback.Parse("# Title\n- orphan bullet\n### Positive Aspects\n- kept")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"kept"}, got[0].Positive)
	assert.Empty(t, got[0].Improvement)
	assert.Empty(t, got[0].Recommendations)
}

func TestParse_BoldStripping(t *testing.T) {
	got := feedback.Parse("# **Title**\n### Positive Aspects\n- **great** job")
	require.Len(t, got, 1)
	assert.Equal(t, "Title", got[0].Title)
	assert.Equal(t, []string{"great job"}, got[0].Positive)
}

func TestParse_SubHeaderCaseInsensitive(t *testing.T) {
	got := feedback.Parse("# T\n### positive aspects\n- a\n### AREAS FOR IMPROVEMENT\n- b")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a"}, got[0].Positive)
	assert.Equal(t, []string{"b"}, got[0].Improvement)
}

func TestParse_DuplicateTitleLastWins(t *testing.T) {
	raw := "# Depth\n### Positive Aspects\n- first\n\n# Other\n### Positive Aspects\n- o\n\n# Depth\n### Positive Aspects\n- second"
	got := feedback.Parse(raw)
	require.Len(t, got, 2)
	// first position kept, content replaced by the last occurrence
	assert.Equal(t, "Depth", got[0].Title)
	assert.Equal(t, []string{"second"}, got[0].Positive)
	assert.Equal(t, "Other", got[1].Title)
}

func TestParse_PreambleDiscarded(t *testing.T) {
	got := feedback.Parse("Here is my evaluation:\n\n# Real Section\n### Positive Aspects\n- x")
	require.Len(t, got, 1)
	assert.Equal(t, "Real Section", got[0].Title)
}

func TestParse_HeaderNeedsWhitespace(t *testing.T) {
	// "#Title" is not a header line; "## Title" is a sub-level, not a section
	got := feedback.Parse("#Title\n- a\n## Sub\n- b")
	assert.Empty(t, got)
}

func TestParse_Deterministic(t *testing.T) {
	raw := "# A\n### Positive Aspects\n- x\n### Actionable Recommendations\n- y"
	assert.Equal(t, feedback.Parse(raw), feedback.Parse(raw))
}

func TestParse_UnrecognizedSubHeaderEndsNothing(t *testing.T) {
	// an unknown sub-header is ignored, so following bullets still land in
	// the previous bucket
	got := feedback.Parse("# T\n### Positive Aspects\n- a\n### Random Heading\n- b")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b"}, got[0].Positive)
}
