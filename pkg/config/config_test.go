package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsApplyToBulletinSettings(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 3, cfg.Bulletin.PeriodCount)
	assert.Equal(t, "SEQUENTIAL", cfg.Bulletin.TiePolicy)
	assert.Equal(t, 8, cfg.Bulletin.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Bulletin.LockTTL)
	assert.Equal(t, 5*time.Minute, cfg.Bulletin.PreviewCacheTTL)
	assert.True(t, cfg.Bulletin.RenderEnabled)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("BULLETIN_TIE_POLICY", "DENSE")
	t.Setenv("BULLETIN_LOCK_WAIT", "750ms")
	t.Setenv("BULLETIN_SIGNED_URL_TTL", "not-a-duration")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "DENSE", cfg.Bulletin.TiePolicy)
	assert.Equal(t, 750*time.Millisecond, cfg.Bulletin.LockWait)
	assert.Equal(t, 24*time.Hour, cfg.Bulletin.SignedURLTTL)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mentions:
  fallback: insufficient
  tiers:
    - min: 16
      label: honours
    - min: 10
      label: pass
decision:
  fallback: repeat
  thresholds:
    - min: 10
      label: promote
  rules:
    - when: "periods.exists(p, p < 5.0)"
      then: review
coefficients:
  - subject: math
    cycle: UPPER_SECONDARY
    grade_level: "11"
    track: C
    coefficient: 5
`), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.NotNil(t, rules)
	assert.Equal(t, "insufficient", rules.Mentions.Fallback)
	require.Len(t, rules.Mentions.Tiers, 2)
	assert.Equal(t, 16.0, rules.Mentions.Tiers[0].Min)
	require.Len(t, rules.Decision.Rules, 1)
	assert.Equal(t, "review", rules.Decision.Rules[0].Then)
	require.Len(t, rules.Coefficients, 1)
	assert.Equal(t, "11", rules.Coefficients[0].GradeLevel)
	assert.Equal(t, 5.0, rules.Coefficients[0].Coefficient)
}

func TestLoadRulesRejectsInvalidRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
coefficients:
  - subject: math
    cycle: COLLEGE
    coefficient: 2
`), 0o600))

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestLoadRulesEmptyPath(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Nil(t, rules)
}
