package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportMQTT = "mqtt"
	TransportNATS = "nats"
)

// Credential sources for the feature toggle.
const (
	CredentialsDBus   = "dbus"
	CredentialsStatic = "static"
)

// envPrefix is the prefix for all environment overrides.
const envPrefix = "ALARMBRIDGE_"

// DefaultEnvFile is the optional dotenv file read before environment overrides.
const DefaultEnvFile = ".env"

// Config is the root configuration structure for the alarm bridge.
// It is built once at startup and treated as immutable afterwards.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Channel   ChannelConfig   `yaml:"channel"`
	Transport TransportConfig `yaml:"transport"`
	Alarm     AlarmConfig     `yaml:"alarm"`
	Feature   FeatureConfig   `yaml:"feature"`
	Database  DatabaseConfig  `yaml:"database"`
	Journal   JournalConfig   `yaml:"journal"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig identifies the camera this bridge runs on.
type DeviceConfig struct {
	CameraID string `yaml:"camera_id"`
}

// ChannelConfig is the topic/source pair the bridge subscribes to.
type ChannelConfig struct {
	Topic  string `yaml:"topic"`
	Source string `yaml:"source"`
}

// TransportConfig selects and configures the pub/sub transport.
type TransportConfig struct {
	Kind string     `yaml:"kind"`
	MQTT MQTTConfig `yaml:"mqtt"`
	NATS NATSConfig `yaml:"nats"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig contains NATS server connection settings.
type NATSConfig struct {
	URL            string `yaml:"url"`
	Name           string `yaml:"name"`
	ConnectTimeout int    `yaml:"connect_timeout"` // seconds
}

// AlarmConfig configures where accepted detections are forwarded.
type AlarmConfig struct {
	ServerURL string `yaml:"server_url"`

	// ShutdownGrace is how long an in-flight delivery may keep running
	// after a termination signal before it is abandoned.
	ShutdownGrace int `yaml:"shutdown_grace"` // seconds
}

// FeatureConfig configures the one-time feature toggle performed at startup.
type FeatureConfig struct {
	Enabled     bool              `yaml:"enabled"`
	URL         string            `yaml:"url"`
	Account     string            `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
}

// CredentialsConfig selects where feature toggle credentials come from.
type CredentialsConfig struct {
	Source string `yaml:"source"`
	// Static is an "id:secret" string, used only when Source is "static".
	Static string `yaml:"static"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// JournalConfig enables the delivery outcome journal.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the local status server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. .env file in the working directory, if present
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: ALARMBRIDGE_SECTION_KEY
// For example: ALARMBRIDGE_CAMERA_ID, ALARMBRIDGE_ALARM_SERVER_URL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return load(data)
}

// LoadOptional behaves like Load but falls back to the defaults when the
// file does not exist. Any other read error is still returned.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return load(nil)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return load(data)
}

func load(data []byte) (*Config, error) {
	cfg := Default()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := loadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadEnvFile loads a dotenv file into the process environment.
// Variables already set in the environment win over the file.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			CameraID: "B8A44F9EEFE0",
		},
		Channel: ChannelConfig{
			Topic:  "com.axis.consolidated_track.v1.beta",
			Source: "1",
		},
		Transport: TransportConfig{
			Kind: TransportMQTT,
			MQTT: MQTTConfig{
				Broker: MQTTBrokerConfig{
					Host:     "localhost",
					Port:     1883,
					ClientID: "alarmbridge",
				},
				QoS: 1,
			},
			NATS: NATSConfig{
				URL:            "nats://localhost:4222",
				Name:           "alarmbridge",
				ConnectTimeout: 10,
			},
		},
		Alarm: AlarmConfig{
			ServerURL:     "http://192.168.1.145:5100/alarms/redirect",
			ShutdownGrace: 5,
		},
		Feature: FeatureConfig{
			Enabled: true,
			URL:     "http://127.0.0.12/config/rest/best-snapshot/v1/enabled",
			Account: "user",
			Credentials: CredentialsConfig{
				Source: CredentialsDBus,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/alarmbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(envPrefix + key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("CAMERA_ID", &cfg.Device.CameraID)
	setString("CHANNEL_TOPIC", &cfg.Channel.Topic)
	setString("CHANNEL_SOURCE", &cfg.Channel.Source)

	// Transport
	setString("TRANSPORT", &cfg.Transport.Kind)
	setString("MQTT_HOST", &cfg.Transport.MQTT.Broker.Host)
	setString("MQTT_USERNAME", &cfg.Transport.MQTT.Auth.Username)
	setString("MQTT_PASSWORD", &cfg.Transport.MQTT.Auth.Password)
	setString("NATS_URL", &cfg.Transport.NATS.URL)

	// Endpoints
	setString("ALARM_SERVER_URL", &cfg.Alarm.ServerURL)
	setBool("FEATURE_ENABLED", &cfg.Feature.Enabled)
	setString("FEATURE_URL", &cfg.Feature.URL)
	setString("FEATURE_ACCOUNT", &cfg.Feature.Account)
	setString("FEATURE_CREDENTIALS_SOURCE", &cfg.Feature.Credentials.Source)
	setString("FEATURE_CREDENTIALS", &cfg.Feature.Credentials.Static)

	// Storage and metrics
	setString("DATABASE_PATH", &cfg.Database.Path)
	setBool("JOURNAL_ENABLED", &cfg.Journal.Enabled)
	setString("INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	setString("LOG_LEVEL", &cfg.Logging.Level)
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.CameraID == "" {
		errs = append(errs, "device.camera_id is required")
	}
	if c.Channel.Topic == "" {
		errs = append(errs, "channel.topic is required")
	}
	if c.Channel.Source == "" {
		errs = append(errs, "channel.source is required")
	}

	switch c.Transport.Kind {
	case TransportMQTT:
		if c.Transport.MQTT.QoS < 0 || c.Transport.MQTT.QoS > 2 {
			errs = append(errs, "transport.mqtt.qos must be 0, 1, or 2")
		}
		if c.Transport.MQTT.Broker.Host == "" {
			errs = append(errs, "transport.mqtt.broker.host is required")
		}
	case TransportNATS:
		if c.Transport.NATS.URL == "" {
			errs = append(errs, "transport.nats.url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("transport.kind must be %q or %q", TransportMQTT, TransportNATS))
	}

	if !isHTTPURL(c.Alarm.ServerURL) {
		errs = append(errs, "alarm.server_url must be an http(s) URL")
	}
	if c.Alarm.ShutdownGrace < 0 {
		errs = append(errs, "alarm.shutdown_grace must not be negative")
	}

	if c.Feature.Enabled {
		if !isHTTPURL(c.Feature.URL) {
			errs = append(errs, "feature.url must be an http(s) URL")
		}
		if c.Feature.Account == "" {
			errs = append(errs, "feature.account is required")
		}
		switch c.Feature.Credentials.Source {
		case CredentialsDBus:
		case CredentialsStatic:
			if c.Feature.Credentials.Static == "" {
				errs = append(errs, "feature.credentials.static is required when source is static")
			}
		default:
			errs = append(errs, fmt.Sprintf("feature.credentials.source must be %q or %q", CredentialsDBus, CredentialsStatic))
		}
	}

	if c.Journal.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when journal is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// isHTTPURL reports whether s parses as an absolute http or https URL.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// GetShutdownGrace returns the alarm delivery shutdown grace as a Duration.
func (c *Config) GetShutdownGrace() time.Duration {
	return time.Duration(c.Alarm.ShutdownGrace) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
