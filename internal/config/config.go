package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration. It is loaded once at session
// start and treated as immutable by the core loop.
type Config struct {
	Version    int              `toml:"version"`
	Device     DeviceConfig     `toml:"device"`
	Session    SessionConfig    `toml:"session"`
	Timing     TimingConfig     `toml:"timing"`
	Perception PerceptionConfig `toml:"perception"`
	Decision   DecisionConfig   `toml:"decision"`
	Criteria   Criteria         `toml:"criteria"`
	Email      EmailConfig      `toml:"email"`
}

type DeviceConfig struct {
	// Address of the adb server, host:port.
	Address string `toml:"address"`
	// Serial of the target device; empty picks the first device listed.
	Serial string `toml:"serial"`
	// SaveCaptures writes every screenshot to the cache dir for audit.
	SaveCaptures bool `toml:"save_captures"`
}

type SessionConfig struct {
	MaxProfiles          int    `toml:"max_profiles"`
	MaxConsecutiveErrors int    `toml:"max_consecutive_errors"`
	CaptureRetries       int    `toml:"capture_retries"`
	ClassifyRetries      int    `toml:"classify_retries"`
	VerifyRetries        int    `toml:"verify_retries"`
	MaxFrames            int    `toml:"max_frames"` // scroll captures per profile
	// Schedule is an optional cron expression; empty means run once.
	Schedule string `toml:"schedule"`
	Timezone string `toml:"timezone"`
}

type TimingConfig struct {
	TapDelayMs           int `toml:"tap_delay_ms"`
	SwipeDelayMs         int `toml:"swipe_delay_ms"`
	TextDelayMs          int `toml:"text_delay_ms"`
	ScrollSettleMs       int `toml:"scroll_settle_ms"`
	InterProfileDelaySec int `toml:"inter_profile_delay_sec"`
	AdapterRetryDelaySec int `toml:"adapter_retry_delay_sec"`
}

type PerceptionConfig struct {
	// Provider is "vision" (multimodal chat endpoint) or "tesseract"
	// (local OCR binary, text extraction only).
	Provider            string  `toml:"provider"`
	APIKey              string  `toml:"api_key"`
	Model               string  `toml:"model"`
	BaseURL             string  `toml:"base_url"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	TesseractPath       string  `toml:"tesseract_path"`
}

type DecisionConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
}

// EmailConfig enables the end-of-session report email.
type EmailConfig struct {
	Enabled  bool   `toml:"enabled"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	To       string `toml:"to"`
}

// Criteria is the static matching criteria for the session.
type Criteria struct {
	MinAge             int      `toml:"min_age"`
	MaxAge             int      `toml:"max_age"`
	PreferredInterests []string `toml:"preferred_interests"`
	DealBreakers       []string `toml:"deal_breakers"`
	PersonalityTraits  []string `toml:"personality_traits"`
}

const ProviderAnthropic = "anthropic"

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Device: DeviceConfig{
			Address:      "127.0.0.1:5037",
			SaveCaptures: true,
		},
		Session: SessionConfig{
			MaxProfiles:          50,
			MaxConsecutiveErrors: 5,
			CaptureRetries:       3,
			ClassifyRetries:      3,
			VerifyRetries:        2,
			MaxFrames:            8,
			Timezone:             "Local",
		},
		Timing: TimingConfig{
			TapDelayMs:           1000,
			SwipeDelayMs:         2000,
			TextDelayMs:          500,
			ScrollSettleMs:       800,
			InterProfileDelaySec: 3,
			AdapterRetryDelaySec: 2,
		},
		Perception: PerceptionConfig{
			Provider:            "vision",
			Model:               "gpt-4o",
			BaseURL:             "https://api.openai.com/v1",
			ConfidenceThreshold: 0.7,
			TesseractPath:       "tesseract",
		},
		Decision: DecisionConfig{
			Provider: ProviderAnthropic,
			Model:    "claude-sonnet-4-20250514",
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Criteria: Criteria{
			MinAge: 21,
			MaxAge: 35,
			PreferredInterests: []string{
				"technology", "travel", "fitness", "music", "art",
				"photography", "cooking", "reading", "hiking", "yoga",
			},
			DealBreakers: []string{
				"smoking", "drugs", "excessive drinking",
			},
			PersonalityTraits: []string{
				"intelligent", "funny", "adventurous", "kind",
				"creative", "passionate", "ambitious", "empathetic",
			},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "matchbot"), nil
}

// CacheDir returns the platform-appropriate cache directory, used for
// screenshots and LLM exchange dumps.
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "matchbot"), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from disk.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// ApplyEnv overlays secrets and connection details from the environment, so
// API keys never have to live in the config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Decision.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Perception.APIKey = v
	}
	if v := os.Getenv("MATCHBOT_ADB_ADDRESS"); v != "" {
		c.Device.Address = v
	}
	if v := os.Getenv("MATCHBOT_DEVICE_SERIAL"); v != "" {
		c.Device.Serial = v
	}
	if v := os.Getenv("MATCHBOT_MAX_PROFILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.MaxProfiles = n
		}
	}
	if v := os.Getenv("MATCHBOT_SMTP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
}

// Validate checks the configuration for values the core cannot run with.
func (c *Config) Validate() error {
	if c.Criteria.MinAge >= c.Criteria.MaxAge {
		return fmt.Errorf("invalid age range: min_age %d must be less than max_age %d",
			c.Criteria.MinAge, c.Criteria.MaxAge)
	}
	if c.Session.MaxProfiles <= 0 {
		return fmt.Errorf("max_profiles must be positive")
	}
	if c.Session.MaxConsecutiveErrors <= 0 {
		return fmt.Errorf("max_consecutive_errors must be positive")
	}
	if c.Session.MaxFrames <= 0 {
		return fmt.Errorf("max_frames must be positive")
	}
	if c.Perception.ConfidenceThreshold < 0 || c.Perception.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0, 1]")
	}
	if c.Decision.APIKey == "" {
		return fmt.Errorf("decision api_key is required (set ANTHROPIC_API_KEY)")
	}
	if c.Email.Enabled && (c.Email.SMTPHost == "" || c.Email.From == "" || c.Email.To == "") {
		return fmt.Errorf("email is enabled but smtp_host, from, or to is missing")
	}
	return nil
}
