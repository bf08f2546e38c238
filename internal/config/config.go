package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"salonbook/internal/models"
	"salonbook/internal/schedule"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Salon      SalonConfig      `yaml:"salon"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Drafts     DraftsConfig     `yaml:"drafts"`
	Services   []models.Service `yaml:"services"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
}

// SalonConfig describes opening hours. Open and LastSlot bound the candidate
// start times; Closing bounds the end of a whole service sequence.
type SalonConfig struct {
	Name        string `yaml:"name"`
	Timezone    string `yaml:"timezone"`
	Open        string `yaml:"open"`
	LastSlot    string `yaml:"last_slot"`
	Closing     string `yaml:"closing"`
	SlotStep    int    `yaml:"slot_step"`
	CatalogPath string `yaml:"catalog_path"`
}

type DraftsConfig struct {
	TTL               int `yaml:"ttl"`
	RateLimitRequests int `yaml:"rate_limit_requests"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPort    int    `yaml:"prometheus_port"`
	HealthCheckPort   int    `yaml:"health_check_port"`
	LogLevel          string `yaml:"log_level"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
	SheetName             string `yaml:"sheet_name"`
	// ResyncDays > 0 rewrites the sheet on start with bookings from today on.
	ResyncDays int `yaml:"resync_days"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if err := c.Salon.Validate(); err != nil {
		return err
	}

	return ValidateServices(c.Services)
}

// Validate checks that the opening hours parse and form a non-empty grid.
func (s *SalonConfig) Validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("salon timezone %q: %w", s.Timezone, err)
	}
	open, err := schedule.ParseClock(s.Open)
	if err != nil {
		return fmt.Errorf("salon open: %w", err)
	}
	last, err := schedule.ParseClock(s.LastSlot)
	if err != nil {
		return fmt.Errorf("salon last_slot: %w", err)
	}
	closing, err := schedule.ParseClock(s.Closing)
	if err != nil {
		return fmt.Errorf("salon closing: %w", err)
	}
	if last < open {
		return fmt.Errorf("salon last_slot %s is before open %s", s.LastSlot, s.Open)
	}
	if closing <= open {
		return fmt.Errorf("salon closing %s is not after open %s", s.Closing, s.Open)
	}
	if s.SlotStep <= 0 {
		return fmt.Errorf("salon slot_step must be positive, got %d", s.SlotStep)
	}
	return nil
}

// Location returns the salon time zone, falling back to UTC.
func (s *SalonConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Slots enumerates the candidate start times of a day.
func (s *SalonConfig) Slots() []schedule.Clock {
	open, err := schedule.ParseClock(s.Open)
	if err != nil {
		return schedule.DefaultSlots()
	}
	last, err := schedule.ParseClock(s.LastSlot)
	if err != nil {
		return schedule.DefaultSlots()
	}
	return schedule.CandidateSlots(open, last, s.SlotStep)
}

// ClosingTime returns the time by which every service must have finished.
func (s *SalonConfig) ClosingTime() schedule.Clock {
	c, err := schedule.ParseClock(s.Closing)
	if err != nil {
		return schedule.MustClock("21:00")
	}
	return c
}

func ValidateServices(services []models.Service) error {
	ids := make(map[int64]bool)
	for _, s := range services {
		if s.ID == 0 {
			return fmt.Errorf("service '%s' has invalid ID 0", s.Name)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate service ID found: %d", s.ID)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("service '%s' has no duration", s.Name)
		}
		ids[s.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	// Salon defaults
	if c.Salon.Timezone == "" {
		c.Salon.Timezone = "UTC"
	}
	if c.Salon.Open == "" {
		c.Salon.Open = schedule.DefaultOpen.String()
	}
	if c.Salon.LastSlot == "" {
		c.Salon.LastSlot = schedule.DefaultLastSlot.String()
	}
	if c.Salon.Closing == "" {
		c.Salon.Closing = "21:00"
	}
	if c.Salon.SlotStep == 0 {
		c.Salon.SlotStep = schedule.DefaultStep
	}
	if c.Salon.CatalogPath == "" {
		c.Salon.CatalogPath = "configs/services.yaml"
	}

	// Drafts defaults
	if c.Drafts.TTL == 0 {
		c.Drafts.TTL = models.DefaultDraftTTL
	}
	if c.Drafts.RateLimitRequests == 0 {
		c.Drafts.RateLimitRequests = models.RateLimitRequests
	}
	if c.Drafts.RateLimitWindow == 0 {
		c.Drafts.RateLimitWindow = models.RateLimitWindow
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Bookings"
	}
}
