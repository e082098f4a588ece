// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. ESCPOS_SERVICE_SERVER_PORT.
const EnvPrefix = "ESCPOS_SERVICE"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Printer   PrinterConfig   `mapstructure:"printer"`
	Transport TransportConfig `mapstructure:"transport"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig represents database configuration. When disabled the
// service keeps printers and jobs in memory.
type DatabaseConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	DBName        string        `mapstructure:"dbname"`
	SSLMode       string        `mapstructure:"sslmode"`
	MaxOpenConns  int           `mapstructure:"max_open_conns"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns"`
	MaxLifetime   time.Duration `mapstructure:"max_lifetime"`
	AutoMigrate   bool          `mapstructure:"auto_migrate"`
	JobsRetention time.Duration `mapstructure:"jobs_retention"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxJobBytes    int64    `mapstructure:"max_job_bytes"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// PrinterConfig holds defaults for composing print jobs
type PrinterConfig struct {
	DefaultModel    string        `mapstructure:"default_model"`
	ProfilesFile    string        `mapstructure:"profiles_file"`
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
	StatusTimeout   time.Duration `mapstructure:"status_timeout"`
	EncodingPolicy  string        `mapstructure:"encoding_policy"`
	Placeholder     string        `mapstructure:"placeholder"`
	ImageDensity    string        `mapstructure:"image_density"`
	ImageDither     string        `mapstructure:"image_dither"`
	InitBeforeJob   bool          `mapstructure:"init_before_job"`
	CutAfterJob     bool          `mapstructure:"cut_after_job"`
	CutFeedLines    int           `mapstructure:"cut_feed_lines"`
	WorkerPoolSize  int           `mapstructure:"worker_pool_size"`
	EventBufferSize int           `mapstructure:"event_buffer_size"`
}

// TransportConfig represents default transport settings
type TransportConfig struct {
	Serial SerialPortConfig `mapstructure:"serial"`
	TCP    TCPPortConfig    `mapstructure:"tcp"`
	USB    USBPortConfig    `mapstructure:"usb"`
	File   FilePortConfig   `mapstructure:"file"`
}

// SerialPortConfig represents serial port configuration
type SerialPortConfig struct {
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	StopBits int           `mapstructure:"stop_bits"`
	Parity   string        `mapstructure:"parity"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TCPPortConfig represents TCP port configuration
type TCPPortConfig struct {
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
}

// USBPortConfig represents USB port configuration
type USBPortConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	BulkTransferSize int           `mapstructure:"bulk_transfer_size"`
}

// FilePortConfig represents device-node and spool file output
type FilePortConfig struct {
	SpoolDir string `mapstructure:"spool_dir"`
}

// DiscoveryConfig controls printer discovery scans
type DiscoveryConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	NetworkRanges  []string      `mapstructure:"network_ranges"`
	Ports          []int         `mapstructure:"ports"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Workers        int           `mapstructure:"workers"`
	ProbeStatus    bool          `mapstructure:"probe_status"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from config.yaml in the usual locations, a .env
// file and environment variables. A missing config file is not an error.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/escpos-service")
	}

	// Environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "escpos_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.jobs_retention", "720h")

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.max_job_bytes", 8<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Printer defaults
	v.SetDefault("printer.default_model", "default")
	v.SetDefault("printer.profiles_file", "")
	v.SetDefault("printer.job_timeout", "30s")
	v.SetDefault("printer.status_timeout", "2s")
	v.SetDefault("printer.encoding_policy", "substitute")
	v.SetDefault("printer.placeholder", "?")
	v.SetDefault("printer.image_density", "high")
	v.SetDefault("printer.image_dither", "floyd-steinberg")
	v.SetDefault("printer.init_before_job", true)
	v.SetDefault("printer.cut_after_job", false)
	v.SetDefault("printer.cut_feed_lines", 4)
	v.SetDefault("printer.worker_pool_size", 4)
	v.SetDefault("printer.event_buffer_size", 256)

	// Transport defaults
	v.SetDefault("transport.serial.baud_rate", 9600)
	v.SetDefault("transport.serial.data_bits", 8)
	v.SetDefault("transport.serial.stop_bits", 1)
	v.SetDefault("transport.serial.parity", "none")
	v.SetDefault("transport.serial.timeout", "5s")

	v.SetDefault("transport.tcp.port", 9100)
	v.SetDefault("transport.tcp.connect_timeout", "10s")
	v.SetDefault("transport.tcp.read_timeout", "5s")
	v.SetDefault("transport.tcp.write_timeout", "30s")
	v.SetDefault("transport.tcp.keep_alive", true)

	v.SetDefault("transport.usb.timeout", "5s")
	v.SetDefault("transport.usb.bulk_transfer_size", 64)

	v.SetDefault("transport.file.spool_dir", "./spool")

	// Discovery defaults
	v.SetDefault("discovery.timeout", "30s")
	v.SetDefault("discovery.network_ranges", []string{})
	v.SetDefault("discovery.ports", []int{9100})
	v.SetDefault("discovery.connect_timeout", "500ms")
	v.SetDefault("discovery.workers", 64)
	v.SetDefault("discovery.probe_status", true)

	// App defaults
	v.SetDefault("app.name", "escpos-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

func oneOf(value string, valid []string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	return false
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required when the database is enabled")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !oneOf(config.App.Environment, validEnvs) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !oneOf(config.Logging.Level, validLevels) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	validPolicies := []string{"substitute", "fail"}
	if !oneOf(config.Printer.EncodingPolicy, validPolicies) {
		return fmt.Errorf("printer.encoding_policy must be one of: %v", validPolicies)
	}
	if len(config.Printer.Placeholder) != 1 || config.Printer.Placeholder[0] >= 0x80 {
		return fmt.Errorf("printer.placeholder must be a single ASCII character")
	}

	validDensities := []string{"low", "medium", "high"}
	if !oneOf(config.Printer.ImageDensity, validDensities) {
		return fmt.Errorf("printer.image_density must be one of: %v", validDensities)
	}
	if config.Printer.WorkerPoolSize < 1 {
		return fmt.Errorf("printer.worker_pool_size must be positive")
	}

	for _, r := range config.Discovery.NetworkRanges {
		_, ipNet, err := net.ParseCIDR(r)
		if err != nil {
			return fmt.Errorf("discovery.network_ranges: %w", err)
		}
		if ones, bits := ipNet.Mask.Size(); bits-ones > 16 {
			return fmt.Errorf("discovery.network_ranges: %s is larger than a /16", r)
		}
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
