package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Decision.APIKey = "sk-test"
	return cfg
}

func TestDefaultValidatesWithKey(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingAPIKey(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted age range", func(c *Config) { c.Criteria.MinAge = 40; c.Criteria.MaxAge = 30 }},
		{"zero max profiles", func(c *Config) { c.Session.MaxProfiles = 0 }},
		{"zero error cap", func(c *Config) { c.Session.MaxConsecutiveErrors = 0 }},
		{"zero max frames", func(c *Config) { c.Session.MaxFrames = 0 }},
		{"threshold above one", func(c *Config) { c.Perception.ConfidenceThreshold = 1.5 }},
		{"email enabled without host", func(c *Config) { c.Email.Enabled = true; c.Email.From = "a@b"; c.Email.To = "c@d" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	t.Setenv("MATCHBOT_DEVICE_SERIAL", "emulator-5556")
	t.Setenv("MATCHBOT_MAX_PROFILES", "7")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "sk-env", cfg.Decision.APIKey)
	assert.Equal(t, "emulator-5556", cfg.Device.Serial)
	assert.Equal(t, 7, cfg.Session.MaxProfiles)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := validConfig()
	cfg.Device.Serial = "emulator-5554"
	cfg.Criteria.DealBreakers = []string{"smoking"}
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "emulator-5554", loaded.Device.Serial)
	assert.Equal(t, []string{"smoking"}, loaded.Criteria.DealBreakers)
	assert.Equal(t, cfg.Session.MaxProfiles, loaded.Session.MaxProfiles)
}
