// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nyaruka/phonenumbers"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type SchedulerConfig struct {
	// Cron expressions for background sweeps.
	WaitlistExpiryCron string `yaml:"waitlist_expiry_cron"`
	GameCompletionCron string `yaml:"game_completion_cron"`
	// Hours a waiting entry may sit before the sweep expires it.
	WaitlistExpiryHours int `yaml:"waitlist_expiry_hours"`
}

type EmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
	Sender  string `yaml:"sender"`
	// Loaded from environment
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		// Region used to parse mobile numbers given without a country prefix.
		PhoneRegion string `yaml:"phone_region"`
		// bcrypt hash of the admin API key, loaded from environment
		AdminKeyHash string `yaml:"-"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Email     EmailConfig     `yaml:"email"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()

	// Load sensitive values from environment
	cfg.App.AdminKeyHash = os.Getenv("ADMIN_KEY_HASH")
	cfg.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.App.PhoneRegion = strings.ToUpper(strings.TrimSpace(c.App.PhoneRegion))
	if c.App.PhoneRegion == "" {
		c.App.PhoneRegion = "AU"
	}
	if c.Scheduler.WaitlistExpiryCron == "" {
		c.Scheduler.WaitlistExpiryCron = "*/15 * * * *"
	}
	if c.Scheduler.GameCompletionCron == "" {
		c.Scheduler.GameCompletionCron = "0 * * * *"
	}
	if c.Scheduler.WaitlistExpiryHours <= 0 {
		c.Scheduler.WaitlistExpiryHours = 48
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Filename == "" {
		return fmt.Errorf("database filename is required for sqlite")
	}
	if phonenumbers.GetCountryCodeForRegion(c.App.PhoneRegion) == 0 {
		return fmt.Errorf("unknown phone_region: %s", c.App.PhoneRegion)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Scheduler.WaitlistExpiryCron); err != nil {
		return fmt.Errorf("invalid waitlist_expiry_cron: %w", err)
	}
	if _, err := parser.Parse(c.Scheduler.GameCompletionCron); err != nil {
		return fmt.Errorf("invalid game_completion_cron: %w", err)
	}

	if c.Email.Enabled {
		if c.Email.Region == "" || c.Email.Sender == "" {
			return fmt.Errorf("email region and sender are required when email is enabled")
		}
		if c.Email.AccessKeyID == "" || c.Email.SecretAccessKey == "" {
			return fmt.Errorf("email credentials are required when email is enabled")
		}
	}

	return nil
}
