package config

import (
	"newton/models"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlansFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPlanCatalog_Defaults(t *testing.T) {
	catalog, err := LoadPlanCatalog("")
	require.NoError(t, err)

	free := catalog.LimitsFor(models.TierFree)
	assert.Equal(t, 3, free.NotesPerMonth)
	assert.False(t, free.AudioUploads)

	assert.Equal(t, models.Unlimited, catalog.LimitsFor(models.TierLifetime).NotesPerMonth)

	_, ok := catalog.PlanID(models.TierMonthly)
	assert.False(t, ok, "no Whop plan is configured by default")
}

func TestLoadPlanCatalog_File(t *testing.T) {
	path := writePlansFile(t, `
plans:
  monthly: plan_m
  yearly: plan_y
products:
  prod_lifetime: lifetime
limits:
  free:
    notes_per_month: 5
    max_upload_mb: 20
    generations_per_minute: 2
`)

	catalog, err := LoadPlanCatalog(path)
	require.NoError(t, err)

	tier, ok := catalog.TierFor("plan_y", "")
	require.True(t, ok)
	assert.Equal(t, models.TierYearly, tier)

	tier, ok = catalog.TierFor("plan_unknown", "prod_lifetime")
	require.True(t, ok)
	assert.Equal(t, models.TierLifetime, tier)

	_, ok = catalog.TierFor("plan_unknown", "")
	assert.False(t, ok)

	id, ok := catalog.PlanID(models.TierMonthly)
	require.True(t, ok)
	assert.Equal(t, "plan_m", id)

	// Listed fields override, the rest keep their defaults
	free := catalog.LimitsFor(models.TierFree)
	assert.Equal(t, 5, free.NotesPerMonth)
	assert.Equal(t, 20, free.MaxUploadMB)
	assert.Equal(t, 2, free.GenerationsPerMinute)
	assert.Equal(t, 5, free.QuizQuestions)
	assert.Equal(t, 4, free.MaxRoomParticipants)
	assert.True(t, free.YouTubeImports)

	// Unlisted tiers keep theirs
	assert.Equal(t, 30, catalog.LimitsFor(models.TierMonthly).FlashcardsPerNote)
}

func TestLoadPlanCatalog_EnvOverride(t *testing.T) {
	t.Setenv("NEWTON_PLANS_LIFETIME", "plan_forever")

	catalog, err := LoadPlanCatalog("")
	require.NoError(t, err)

	tier, ok := catalog.TierFor("plan_forever", "")
	require.True(t, ok)
	assert.Equal(t, models.TierLifetime, tier)
}

func TestLoadPlanCatalog_EnvLimitOverride(t *testing.T) {
	t.Setenv("NEWTON_LIMITS_FREE_NOTES_PER_MONTH", "5")
	t.Setenv("NEWTON_LIMITS_MONTHLY_AUDIO_UPLOADS", "false")

	catalog, err := LoadPlanCatalog("")
	require.NoError(t, err)

	free := catalog.LimitsFor(models.TierFree)
	defaults := DefaultPlanCatalog().LimitsFor(models.TierFree)
	defaults.NotesPerMonth = 5
	assert.Equal(t, defaults, free)

	monthly := catalog.LimitsFor(models.TierMonthly)
	assert.False(t, monthly.AudioUploads)
	assert.Equal(t, 20, monthly.GenerationsPerMinute)
}

func TestLoadPlanCatalog_EnvProductKeepsCase(t *testing.T) {
	t.Setenv("NEWTON_PRODUCTS_prod_AbC123", "lifetime")

	catalog, err := LoadPlanCatalog("")
	require.NoError(t, err)

	tier, ok := catalog.TierFor("", "prod_AbC123")
	require.True(t, ok)
	assert.Equal(t, models.TierLifetime, tier)
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{name: "NEWTON_PLANS_YEARLY", expected: "plans.yearly"},
		{name: "NEWTON_LIMITS_FREE_MAX_UPLOAD_MB", expected: "limits.free.max_upload_mb"},
		{name: "NEWTON_PRODUCTS_prod_AbC123", expected: "products.prod_AbC123"},
		{name: "NEWTON_DEBUG", expected: "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, envKey(tt.name))
		})
	}
}

func TestLoadPlanCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "Free tier cannot be sold",
			content: "plans:\n  free: plan_free\n",
		},
		{
			name:    "Product mapped to free",
			content: "products:\n  prod_x: free\n",
		},
		{
			name:    "Negative quiz size",
			content: "limits:\n  monthly:\n    quiz_questions: -3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPlanCatalog(writePlansFile(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadPlanCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
