package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiresim/interview-evaluator/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "openai/gpt-oss-120b", cfg.GroqModel)
	assert.Equal(t, 8192, cfg.EvalMaxTokens)
	assert.Equal(t, 1024, cfg.ScoreMaxTokens)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("GROQ_MODEL", "llama-3.3-70b-versatile")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.GroqModel)
	assert.True(t, cfg.IsProd())
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}
