package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the environment variable holding the Lucid API key
const APIKeyEnv = "LUCID_API_KEY"

// Config holds all configuration options for the exporter
type Config struct {
	// Lucid API access
	Lucid LucidConfig `yaml:"lucid" json:"lucid"`

	// Page export settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Metrics output
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LucidConfig holds Lucid API configuration
type LucidConfig struct {
	APIKey     string `yaml:"api_key" json:"api_key"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	APIVersion string `yaml:"api_version" json:"api_version"`
}

// ExportConfig holds per-page export settings
type ExportConfig struct {
	ContentType    string        `yaml:"content_type" json:"content_type"`
	Extension      string        `yaml:"extension" json:"extension"`
	CropMode       string        `yaml:"crop" json:"crop"`
	Concurrency    int           `yaml:"concurrency" json:"concurrency"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	ReportFile    string `yaml:"report_file" json:"report_file"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// TextfilePath receives Prometheus text-format metrics after a run
	TextfilePath string `yaml:"textfile" json:"textfile"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Lucid: LucidConfig{
			BaseURL:    "https://api.lucid.co",
			APIVersion: "1",
		},
		Export: ExportConfig{
			ContentType: "image/png;dpi=256",
			Extension:   "png",
			CropMode:    "content",
			// higher than 12 and the API starts to throttle requests
			Concurrency:    12,
			RequestTimeout: 2 * time.Minute,
		},
		Output: OutputConfig{
			BaseDirectory: "./LucidExports",
		},
		Notifications: NotificationConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if apiKey := strings.TrimSpace(os.Getenv(APIKeyEnv)); apiKey != "" {
		c.Lucid.APIKey = apiKey
	}
	if baseURL := os.Getenv("LUCIDEXPORT_BASE_URL"); baseURL != "" {
		c.Lucid.BaseURL = baseURL
	}

	if outputDir := os.Getenv("LUCIDEXPORT_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if reportFile := os.Getenv("LUCIDEXPORT_REPORT_FILE"); reportFile != "" {
		c.Output.ReportFile = reportFile
	}

	if concurrency := os.Getenv("LUCIDEXPORT_CONCURRENCY"); concurrency != "" {
		val, err := strconv.Atoi(concurrency)
		if err != nil {
			return fmt.Errorf("invalid LUCIDEXPORT_CONCURRENCY %q: %w", concurrency, err)
		}
		c.Export.Concurrency = val
	}

	if metricsFile := os.Getenv("LUCIDEXPORT_METRICS_FILE"); metricsFile != "" {
		c.Metrics.TextfilePath = metricsFile
	}

	if logLevel := os.Getenv("LUCIDEXPORT_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".lucidexport.yaml",
		".lucidexport.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "lucidexport", "config.yaml"),
			filepath.Join(home, ".lucidexport.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. The API key is not checked
// here; it is resolved separately so that config subcommands work without one.
func (c *Config) Validate() error {
	var errs []error

	if c.Lucid.BaseURL == "" {
		errs = append(errs, errors.New("lucid base URL is required"))
	}
	if c.Lucid.APIVersion == "" {
		errs = append(errs, errors.New("lucid API version is required"))
	}

	if c.Export.ContentType == "" {
		errs = append(errs, errors.New("export content type is required"))
	}
	if c.Export.Extension == "" {
		errs = append(errs, errors.New("export extension is required"))
	}
	if strings.ContainsAny(c.Export.Extension, `/\.`) {
		errs = append(errs, errors.New("export extension must not contain path separators or dots"))
	}
	if c.Export.CropMode == "" {
		errs = append(errs, errors.New("export crop mode is required"))
	}
	if c.Export.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}
	if c.Export.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied, so unset flags never clobber
// values from the environment or the config file.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if apiKey, ok := flags["api-key"].(string); ok && apiKey != "" {
		c.Lucid.APIKey = apiKey
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if reportFile, ok := flags["report"].(string); ok && reportFile != "" {
		c.Output.ReportFile = reportFile
	}
	if concurrency, ok := flags["concurrency"].(int); ok {
		c.Export.Concurrency = concurrency
	}
	if contentType, ok := flags["content-type"].(string); ok && contentType != "" {
		c.Export.ContentType = contentType
	}
	if extension, ok := flags["extension"].(string); ok && extension != "" {
		c.Export.Extension = extension
	}
	if crop, ok := flags["crop"].(string); ok && crop != "" {
		c.Export.CropMode = crop
	}
	if metricsFile, ok := flags["metrics-file"].(string); ok && metricsFile != "" {
		c.Metrics.TextfilePath = metricsFile
	}
	if notify, ok := flags["notify"].(bool); ok {
		c.Notifications.Enabled = notify
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noColor, ok := flags["no-color"].(bool); ok {
		c.Logging.NoColor = noColor
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".lucidexport.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// MaskSecret masks all but the first 4 and last 4 characters of a secret
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
