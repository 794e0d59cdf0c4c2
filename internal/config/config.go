package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jgoulah/gridmeter/internal/meter"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Timezone      string       `yaml:"timezone,omitempty"`   // Deployment zone for "now" (fallback: Europe/Kiev)
	DBPath        string       `yaml:"db_path,omitempty"`    // SQLite file (fallback: data.db)
	AdminID       int64        `yaml:"admin_id,omitempty"`   // Subscriber allowed to run admin commands
	Weights       []float64    `yaml:"weights,omitempty"`    // 24 hour-of-day weights, overrides the built-in table
	LogFile       string       `yaml:"log_file,omitempty"`   // Optional log file in addition to stdout
	HTTPAddr      string       `yaml:"http_addr,omitempty"`  // Listen address for serve (fallback: :8080)
	Report        ReportConfig `yaml:"report,omitempty"`
	MQTT          MQTTConfig   `yaml:"mqtt,omitempty"`
	Kafka         KafkaConfig  `yaml:"kafka,omitempty"`
	HomeAssistant HAConfig     `yaml:"home_assistant,omitempty"`
}

// ReportConfig controls the reporting adapter
type ReportConfig struct {
	PictureDir  string `yaml:"picture_dir,omitempty"`  // Where chart artifacts are written (fallback: pictures)
	Unit        string `yaml:"unit,omitempty"`         // Unit suffix for text lines (fallback: kWh)
	HourlyChart bool   `yaml:"hourly_chart,omitempty"` // Also render the last week of hourly deltas
	HourlyDays  int    `yaml:"hourly_days,omitempty"`  // Window for the hourly chart (fallback: 7)
}

// MQTTConfig holds MQTT broker configuration for delta export
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`                 // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // fallback: electric_meter
}

// KafkaConfig holds Kafka configuration for delta export
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic,omitempty"` // fallback: hourly-deltas
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`       // e.g., "http://yourdomain.local:5050"
	Token    string `yaml:"token"`     // Long-lived access token
	EntityID string `yaml:"entity_id"` // e.g., "sensor.gridmeter_hourly_energy"
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
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetLocation returns the deployment time zone
func (c *Config) GetLocation() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = "Europe/Kiev"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// GetDBPath returns the database path with a default of data.db
func (c *Config) GetDBPath() string {
	if c.DBPath == "" {
		return "data.db"
	}
	return c.DBPath
}

// GetWeights returns the configured weight table or the built-in one
func (c *Config) GetWeights() (meter.WeightTable, error) {
	if len(c.Weights) == 0 {
		return meter.DefaultWeights, nil
	}
	return meter.ParseWeights(c.Weights)
}

// GetHTTPAddr returns the listen address for serve
func (c *Config) GetHTTPAddr() string {
	if c.HTTPAddr == "" {
		return ":8080"
	}
	return c.HTTPAddr
}

// IsAdmin reports whether the subscriber may run privileged commands
func (c *Config) IsAdmin(subscriberID int64) bool {
	return c.AdminID != 0 && c.AdminID == subscriberID
}

// GetPictureDir returns where chart artifacts are written
func (r ReportConfig) GetPictureDir() string {
	if r.PictureDir == "" {
		return "pictures"
	}
	return r.PictureDir
}

// GetUnit returns the unit suffix for report lines
func (r ReportConfig) GetUnit() string {
	if r.Unit == "" {
		return "kWh"
	}
	return r.Unit
}

// GetHourlyWindow returns the hourly chart window, or 0 when the chart is off
func (r ReportConfig) GetHourlyWindow() time.Duration {
	if !r.HourlyChart {
		return 0
	}
	days := r.HourlyDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// GetTopicPrefix returns the MQTT topic prefix
func (m MQTTConfig) GetTopicPrefix() string {
	if m.TopicPrefix == "" {
		return "electric_meter"
	}
	return m.TopicPrefix
}

// GetTopic returns the Kafka topic for hourly deltas
func (k KafkaConfig) GetTopic() string {
	if k.Topic == "" {
		return "hourly-deltas"
	}
	return k.Topic
}
