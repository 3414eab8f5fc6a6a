// Package config provides XML-based configuration management for the dashboard server.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"RecruitDashboard"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Upload limits
	Upload UploadConfig `xml:"Upload"`

	// Session lifecycle
	Sessions SessionsConfig `xml:"Sessions"`

	// Dashboard presentation
	Dashboard DashboardConfig `xml:"Dashboard"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// UploadConfig bounds accepted uploads
type UploadConfig struct {
	MaxUploadSizeMB       int    `xml:"MaxUploadSizeMB"`
	MaxDecompressedSizeMB int    `xml:"MaxDecompressedSizeMB"`
	AllowedFileTypes      string `xml:"AllowedFileTypes"`
}

// SessionsConfig controls how long uploads are kept in memory
type SessionsConfig struct {
	MaxSessions            int `xml:"MaxSessions"`
	SessionTimeoutMinutes  int `xml:"SessionTimeoutMinutes"`
	KeepAliveMinutes       int `xml:"KeepAliveMinutes"`
	CleanupIntervalMinutes int `xml:"CleanupIntervalMinutes"`
}

// DashboardConfig contains column names and chart settings
type DashboardConfig struct {
	SchemaFile string `xml:"SchemaFile"` // optional YAML column mapping
	TopN       int    `xml:"TopRecruiters"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	DataDirectory        string `xml:"DataDirectory"`
	LogLevel             string `xml:"LogLevel"`
	DevelopmentLogging   bool   `xml:"DevelopmentLogging"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
	MaxConcurrentQueries int    `xml:"MaxConcurrentQueries"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8501,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Upload: UploadConfig{
			MaxUploadSizeMB:       50,
			MaxDecompressedSizeMB: 200,
			AllowedFileTypes:      ".csv,.csv.gz,.txt",
		},
		Sessions: SessionsConfig{
			MaxSessions:            10,
			SessionTimeoutMinutes:  30,
			KeepAliveMinutes:       5,
			CleanupIntervalMinutes: 5,
		},
		Dashboard: DashboardConfig{
			SchemaFile: "",
			TopN:       5,
		},
		Advanced: AdvancedConfig{
			DataDirectory:        "./data",
			LogLevel:             "info",
			DevelopmentLogging:   false,
			EnableRequestLogging: true,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "256MB",
			MaxConcurrentQueries: 3,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, config.Validate()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so sections missing from the file keep sane values
	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Recruitment Dashboard Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects values the server cannot run with
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Upload.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("MaxUploadSizeMB must be positive")
	}
	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("MaxSessions must be positive")
	}
	if c.Dashboard.TopN <= 0 {
		return fmt.Errorf("TopRecruiters must be positive")
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Advanced.DataDirectory = dataDir
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}

	if schema := os.Getenv("SCHEMA_FILE"); schema != "" {
		c.Dashboard.SchemaFile = schema
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.Advanced.DataDirectory != "" && !filepath.IsAbs(c.Advanced.DataDirectory) {
		c.Advanced.DataDirectory = filepath.Join(configDir, c.Advanced.DataDirectory)
	}
	if c.Dashboard.SchemaFile != "" && !filepath.IsAbs(c.Dashboard.SchemaFile) {
		c.Dashboard.SchemaFile = filepath.Join(configDir, c.Dashboard.SchemaFile)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Advanced.DataDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetAllowedFileTypes splits the configured suffix list
func (c *AppConfig) GetAllowedFileTypes() []string {
	var types []string
	for _, t := range strings.Split(c.Upload.AllowedFileTypes, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, ".") {
			t = "." + t
		}
		types = append(types, t)
	}
	return types
}

// GetAllowOrigins splits the CORS origin list; nil when CORS is disabled
func (c *AppConfig) GetAllowOrigins() []string {
	if !c.Server.EnableCORS {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// SessionTimeout returns how long an idle session is kept
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Sessions.SessionTimeoutMinutes) * time.Minute
}

// KeepAliveWindow returns the window in which a used session is never cleaned up
func (c *AppConfig) KeepAliveWindow() time.Duration {
	return time.Duration(c.Sessions.KeepAliveMinutes) * time.Minute
}

// CleanupInterval returns how often idle sessions are swept
func (c *AppConfig) CleanupInterval() time.Duration {
	d := time.Duration(c.Sessions.CleanupIntervalMinutes) * time.Minute
	if d <= 0 {
		d = 5 * time.Minute
	}
	return d
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	if c.Advanced.DataDirectory == "" {
		return nil
	}
	if err := os.MkdirAll(c.Advanced.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Advanced.DataDirectory, err)
	}
	return nil
}
