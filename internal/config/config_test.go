package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesPointsDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: 127.0.0.1
  port: 3306
  user: u
  password: p
  dbname: synthos_points
server:
  port: 8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(50), cfg.Points.LoginSeed)
	assert.Equal(t, int64(100), cfg.Points.ReferralAward)
	assert.Equal(t, float64(10), cfg.Points.MinDepositAmount)
	assert.Equal(t, "0 */10 * * * *", cfg.Points.SweepCron)

	assert.Equal(t, "u:p@tcp(127.0.0.1:3306)/synthos_points?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.DSN())
}

func TestEnabledChains(t *testing.T) {
	path := writeConfig(t, `
chains:
  - id: scroll
    enabled: true
  - id: base
    enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	enabled := cfg.GetEnabledChains()
	require.Len(t, enabled, 1)
	assert.Equal(t, "scroll", enabled[0].ID)

	chain, err := cfg.GetChainConfig("base")
	require.NoError(t, err)
	assert.False(t, chain.Enabled)

	_, err = cfg.GetChainConfig("unknown")
	assert.Error(t, err)
}
