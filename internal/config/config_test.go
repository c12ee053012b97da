package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	cfg := Default()
	require.Equal(t, 0.6, cfg.Pipeline.FocusThreshold)
	require.Equal(t, 45, cfg.Pipeline.MergeWindowMinutes)
	require.Equal(t, 10, cfg.Pipeline.MinGapMinutes)
	require.Equal(t, 30, cfg.Pipeline.DefaultDurationMins)
	require.Equal(t, 0.85, cfg.Answers.SimilarityThreshold)
	require.Equal(t, 8, cfg.Answers.MaxSubQuestions)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, meta, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default().Pipeline, cfg.Pipeline)
	require.Equal(t, SourceDefault, meta.Sources["pipeline"])
}

func TestLoadAppliesFileLayer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cadence.yaml")
	content := "pipeline:\n  min_gap_minutes: 15\n  focus_threshold: 0.7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, meta, err := Load(WithConfigFile(path))
	require.NoError(t, err)
	require.Equal(t, 15, cfg.Pipeline.MinGapMinutes)
	require.Equal(t, 0.7, cfg.Pipeline.FocusThreshold)
	// Untouched sections keep defaults.
	require.Equal(t, Default().Answers, cfg.Answers)
	require.Equal(t, SourceFile, meta.Sources["pipeline"])
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, _, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
}

func TestLoadCallerOverrideWinsLast(t *testing.T) {
	cfg, _, err := Load(WithOverride(func(c *Config) {
		c.Pipeline.MergeWindowMinutes = 60
	}))
	require.NoError(t, err)
	require.Equal(t, 60, cfg.Pipeline.MergeWindowMinutes)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, _, err := Load(WithOverride(func(c *Config) {
		c.Pipeline.FocusThreshold = 1.5
	}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "focus_threshold")
}

func TestLoadRejectsOutOfRangeImportanceRescue(t *testing.T) {
	_, _, err := Load(WithOverride(func(c *Config) {
		c.Pipeline.ImportanceRescue = 1.2
	}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "importance_rescue")
}

func TestLoadRejectsUnknownSimilarity(t *testing.T) {
	_, _, err := Load(WithOverride(func(c *Config) {
		c.Answers.Similarity = "cosine"
	}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "similarity")
}

func TestLoadSelectsDiffRatioSimilarity(t *testing.T) {
	cfg, _, err := Load(WithOverride(func(c *Config) {
		c.Answers.Similarity = "diffratio"
	}))
	require.NoError(t, err)
	require.Equal(t, "diffratio", cfg.Answers.Similarity)
}
