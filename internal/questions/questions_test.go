package questions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiresim/interview-evaluator/internal/questions"
	"github.com/hiresim/interview-evaluator/internal/rubric"
)

func TestLoad(t *testing.T) {
	b, err := questions.Load()
	require.NoError(t, err)
	all := b.All()
	require.NotEmpty(t, all)
	for _, q := range all {
		assert.NotEmpty(t, q.Company)
		assert.NotEmpty(t, q.Question)
		// every question's role must exist in the rubric registry
		assert.NotEmpty(t, rubric.ForRole(q.Role), "role %q", q.Role)
	}
}

func TestRandom_FiltersByRole(t *testing.T) {
	b, err := questions.Load()
	require.NoError(t, err)
	for range 20 {
		q := b.Random("Data Scientist")
		assert.Equal(t, "Data Scientist", q.Role)
	}
}

func TestRandom_UnknownRoleFallsBack(t *testing.T) {
	b, err := questions.Load()
	require.NoError(t, err)
	q := b.Random("Astronaut")
	assert.NotEmpty(t, q.Question)
}

func TestRandom_EmptyRoleUsesWholeBank(t *testing.T) {
	b, err := questions.Load()
	require.NoError(t, err)
	q := b.Random("")
	assert.NotEmpty(t, q.Question)
}
