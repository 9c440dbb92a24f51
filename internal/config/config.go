package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jgoulah/redeemstat/internal/analyzer"
	"github.com/jgoulah/redeemstat/internal/logger"
)

// Config holds the application configuration
type Config struct {
	Backend       BackendConfig    `yaml:"backend"`
	Campaigns     []string         `yaml:"campaigns,omitempty"`
	ForecastDays  int              `yaml:"forecast_days,omitempty"` // Default: 7
	Thresholds    ThresholdsConfig `yaml:"thresholds,omitempty"`
	MQTT          MQTTConfig       `yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig         `yaml:"home_assistant,omitempty"`
	Log           logger.Config    `yaml:"log,omitempty"`
}

// BackendConfig holds the hosted backend's REST API settings
type BackendConfig struct {
	URL    string `yaml:"url"`              // e.g., "https://project.example.co"
	APIKey string `yaml:"api_key"`          // Service or anon key
	Table  string `yaml:"table,omitempty"`  // Default: "redemption_codes"
	Schema string `yaml:"schema,omitempty"` // Optional Accept-Profile header
}

// ThresholdsConfig overrides insight thresholds. Zero values keep the defaults.
type ThresholdsConfig struct {
	MinRecords        int      `yaml:"min_records,omitempty"`
	LowRedemptionPct  float64  `yaml:"low_redemption_pct,omitempty"`
	HighRedemptionPct float64  `yaml:"high_redemption_pct,omitempty"`
	RapidGrowthSlope  float64  `yaml:"rapid_growth_slope,omitempty"`
	DeclineSlope      *float64 `yaml:"decline_slope,omitempty"` // Pointer: 0 is a meaningful value
	ExpiredWastePct   float64  `yaml:"expired_waste_pct,omitempty"`
}

// MQTTConfig holds MQTT broker settings for report publishing
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`                 // e.g., "localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // Default: "redeemstat"
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`       // e.g., "http://homeassistant.local:8123"
	Token    string `yaml:"token"`     // Long-lived access token
	EntityID string `yaml:"entity_id"` // e.g., "sensor.code_redemptions_projected"
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// 0600: the file holds API keys
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetForecastDays returns the forecast horizon with a default of 7 days
func (c *Config) GetForecastDays() int {
	if c.ForecastDays <= 0 {
		return 7
	}
	return c.ForecastDays
}

// GetTable returns the backend table name
func (c *BackendConfig) GetTable() string {
	if c.Table == "" {
		return "redemption_codes"
	}
	return c.Table
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *MQTTConfig) GetTopicPrefix() string {
	if c.TopicPrefix == "" {
		return "redeemstat"
	}
	return c.TopicPrefix
}

// AnalyzerThresholds merges configured overrides into the default thresholds
func (c *Config) AnalyzerThresholds() analyzer.Thresholds {
	t := analyzer.DefaultThresholds()
	o := c.Thresholds

	if o.MinRecords > 0 {
		t.MinRecords = o.MinRecords
	}
	if o.LowRedemptionPct > 0 {
		t.LowRedemptionPct = o.LowRedemptionPct
	}
	if o.HighRedemptionPct > 0 {
		t.HighRedemptionPct = o.HighRedemptionPct
	}
	if o.RapidGrowthSlope > 0 {
		t.RapidGrowthSlope = o.RapidGrowthSlope
	}
	if o.DeclineSlope != nil {
		t.DeclineSlope = *o.DeclineSlope
	}
	if o.ExpiredWastePct > 0 {
		t.ExpiredWastePct = o.ExpiredWastePct
	}

	return t
}
