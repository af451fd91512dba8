package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
)

// Config holds the settings shared by the mailbox binaries.
type Config struct {
	// MQTT configures the publish/subscribe transport.
	MQTT MQTT `yaml:"mqtt"`
	// Database configures the telemetry and threshold store.
	Database Database `yaml:"database"`
	// Redis configures the optional sensor state cache.
	Redis Redis `yaml:"redis"`
	// Email configures the optional SMTP notifier.
	Email Email `yaml:"email"`
	// Engine holds decision parameters.
	Engine Engine `yaml:"engine"`
	// Health configures the optional gRPC health endpoint.
	Health Health `yaml:"health"`
	// Logging configures the global logger.
	Logging Logging `yaml:"logging"`
}

// MQTT holds broker connection parameters.
type MQTT struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string `yaml:"broker"`
	// ClientID identifies this process to the broker.
	ClientID string `yaml:"client_id"`
	// Username for broker authentication.
	Username string `yaml:"username"`
	// Password for broker authentication. Overridden by MAILBOX_MQTT_PASSWORD.
	Password string `yaml:"password"`
	// QoS is used for subscriptions and published commands.
	QoS byte `yaml:"qos"`
	// KeepAlive is the MQTT keep-alive interval.
	KeepAlive time.Duration `yaml:"keep_alive"`
	// CleanSession asks the broker to drop session state on connect.
	CleanSession bool `yaml:"clean_session"`
	// ConnectTimeout bounds the initial connect and each publish wait.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// Namespace is the first topic segment.
	Namespace string `yaml:"namespace"`
	// LogLevel is the level of the MQTT client internals.
	LogLevel string `yaml:"log_level"`
}

// Database holds store connection parameters.
type Database struct {
	// URL is a postgres connection string. Overridden by MAILBOX_DATABASE_URL.
	URL string `yaml:"url"`
	// MaxConns caps the connection pool.
	MaxConns int32 `yaml:"max_conns"`
	// CreateSchema creates missing tables on startup.
	CreateSchema bool `yaml:"create_schema"`
}

// Redis holds state cache parameters. An empty Addr disables the cache.
type Redis struct {
	Addr string `yaml:"addr"`
	// Password is overridden by MAILBOX_REDIS_PASSWORD.
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// TTL is how long a sensor's cached state lives without updates.
	TTL time.Duration `yaml:"ttl"`
}

// Email holds SMTP parameters. An empty SMTPServer makes notifications log-only.
type Email struct {
	SMTPServer string `yaml:"smtp_server"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	// Password is overridden by MAILBOX_SMTP_PASSWORD.
	Password    string `yaml:"password"`
	FromAddress string `yaml:"from_address"`
}

// Engine holds the decision parameters of the event-processing engine.
type Engine struct {
	// AverageWindow is the trailing window of the rolling average.
	AverageWindow time.Duration `yaml:"average_window"`
	// DefaultUpperThreshold is given to sensors on first sight. Nil means mailbox.DefaultUpperThreshold.
	DefaultUpperThreshold *float64 `yaml:"default_upper_threshold"`
	// DefaultThresholdSensitivity is given to sensors on first sight.
	// Nil means mailbox.DefaultThresholdSensitivity.
	DefaultThresholdSensitivity *float64 `yaml:"default_threshold_sensitivity"`
	// QueueSize is the capacity of the inbound message queue.
	QueueSize int `yaml:"queue_size"`
}

// Health configures the gRPC health endpoint. An empty ListenAddress disables it.
type Health struct {
	ListenAddress string `yaml:"listen_address"`
}

// Logging configures the global logger.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
	// File additionally receives every entry as JSON lines when set.
	File string `yaml:"file"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "mailbox-sentry.yaml"

	// DefaultDotEnvFilename is read for secrets when present.
	DefaultDotEnvFilename = ".env"

	// DefaultClientID is used when mqtt.client_id is empty.
	DefaultClientID = "mailbox-engine"

	// DefaultTimeout is the default duration for connect and publish waits.
	DefaultTimeout = 5 * time.Second

	// DefaultKeepAlive matches the keep-alive the sensors use.
	DefaultKeepAlive = 60 * time.Second

	// DefaultQueueSize is the default capacity of the inbound message queue.
	DefaultQueueSize = 256

	// DefaultMaxConns is the default connection pool size.
	DefaultMaxConns = 4

	// DefaultStateTTL is how long cached sensor state lives.
	DefaultStateTTL = 24 * time.Hour

	// DefaultSMTPPort is the submission port.
	DefaultSMTPPort = 587

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Environment variables that override secrets from the file.
const (
	EnvMQTTPassword  = "MAILBOX_MQTT_PASSWORD"
	EnvDatabaseURL   = "MAILBOX_DATABASE_URL"
	EnvRedisPassword = "MAILBOX_REDIS_PASSWORD"
	EnvSMTPPassword  = "MAILBOX_SMTP_PASSWORD"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBrokerRequired is returned when the broker URL is missing.
	errBrokerRequired = errors.New("mqtt broker must be provided")
	// errDatabaseRequired is returned when the database URL is missing.
	errDatabaseRequired = errors.New("database url must be provided")
	// errInvalidQoS is returned for QoS levels outside 0..2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
	// errInvalidNamespace is returned when the namespace is not a single topic level.
	errInvalidNamespace = errors.New("mqtt namespace must be a single topic level without wildcards")
	// errFromAddressRequired is returned when SMTP is configured without a sender.
	errFromAddressRequired = errors.New("email from_address must be provided when smtp_server is set")
)

// Load reads configuration from the provided path, applies environment
// overrides and validates essential fields.
func Load(path string) (*Config, error) {
	return load(path, Validate)
}

// LoadTransport is Load for tools that only talk to the broker and the
// health endpoint. The database section is not required.
func LoadTransport(path string) (*Config, error) {
	return load(path, ValidateTransport)
}

func load(path string, check func(*Config) error) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = loadDotEnv(DefaultDotEnvFilename); err != nil {
		return nil, err
	}

	applyEnv(&cfg)

	if err = check(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file carries credentials.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	return validate(cfg, true)
}

// ValidateTransport is Validate without the database requirement.
func ValidateTransport(cfg *Config) error {
	return validate(cfg, false)
}

//nolint:cyclop // A flat list of checks reads better than helpers per section.
func validate(cfg *Config, requireDatabase bool) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.MQTT.Broker == "" {
		return errBrokerRequired
	}

	if _, err := url.ParseRequestURI(cfg.MQTT.Broker); err != nil {
		return fmt.Errorf("invalid mqtt broker: %w", err)
	}

	if cfg.MQTT.QoS > 2 { //nolint:mnd // MQTT defines exactly three QoS levels.
		return errInvalidQoS
	}

	if cfg.MQTT.Namespace == "" {
		cfg.MQTT.Namespace = mailbox.DefaultNamespace
	}

	if strings.ContainsAny(cfg.MQTT.Namespace, "/+#") {
		return errInvalidNamespace
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultClientID
	}

	if cfg.MQTT.KeepAlive <= 0 {
		cfg.MQTT.KeepAlive = DefaultKeepAlive
	}

	if cfg.MQTT.ConnectTimeout <= 0 {
		cfg.MQTT.ConnectTimeout = DefaultTimeout
	}

	if requireDatabase && cfg.Database.URL == "" {
		return errDatabaseRequired
	}

	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = DefaultMaxConns
	}

	if cfg.Redis.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Redis.Addr); err != nil {
			return fmt.Errorf("invalid redis address: %w", err)
		}
	}

	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = DefaultStateTTL
	}

	if cfg.Email.SMTPServer != "" && cfg.Email.FromAddress == "" {
		return errFromAddressRequired
	}

	if cfg.Email.Port <= 0 {
		cfg.Email.Port = DefaultSMTPPort
	}

	if cfg.Engine.AverageWindow <= 0 {
		cfg.Engine.AverageWindow = mailbox.AverageWindow
	}

	if cfg.Engine.QueueSize <= 0 {
		cfg.Engine.QueueSize = DefaultQueueSize
	}

	if cfg.Health.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.Health.ListenAddress); err != nil {
			return fmt.Errorf("invalid health listen address: %w", err)
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	return nil
}

// SensorDefaults returns the thresholds given to sensors on first sight.
// Zero is a valid configured default and is kept as is.
func (e *Engine) SensorDefaults() mailbox.Thresholds {
	defaults := mailbox.DefaultThresholds()

	if e.DefaultUpperThreshold != nil {
		defaults.UpperThreshold = *e.DefaultUpperThreshold
	}

	if e.DefaultThresholdSensitivity != nil {
		defaults.Sensitivity = *e.DefaultThresholdSensitivity
	}

	return defaults
}

// loadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load %s: %w", path, err)
}

// applyEnv overrides secrets with values from the environment.
func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		EnvMQTTPassword:  &cfg.MQTT.Password,
		EnvDatabaseURL:   &cfg.Database.URL,
		EnvRedisPassword: &cfg.Redis.Password,
		EnvSMTPPassword:  &cfg.Email.Password,
	}

	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*target = value
		}
	}
}
