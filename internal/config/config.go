package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mail      MailConfig      `mapstructure:"mail"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	IMAP      IMAPConfig      `mapstructure:"imap"`
	Gmail     GmailConfig     `mapstructure:"gmail"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	AI        AIConfig        `mapstructure:"ai"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MailConfig selects how invitations are delivered
type MailConfig struct {
	Delivery    string `mapstructure:"delivery"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// SMTPConfig holds outbound SMTP settings
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	TLSMode  string        `mapstructure:"tls_mode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// IMAPConfig holds inbound IMAP settings
type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Mailbox  string `mapstructure:"mailbox"`
	TLS      bool   `mapstructure:"tls"`
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// PipelineConfig controls inbound reconciliation
type PipelineConfig struct {
	Source         string        `mapstructure:"source"`
	SubjectMarker  string        `mapstructure:"subject_marker"`
	Lookback       time.Duration `mapstructure:"lookback"`
	MailboxTimeout time.Duration `mapstructure:"mailbox_timeout"`
	Workers        int           `mapstructure:"workers"`
}

// AIConfig holds language model settings
type AIConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	ScoreModel string        `mapstructure:"score_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables the shared in-flight claim store when Addr is set
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	ClaimTTL time.Duration `mapstructure:"claim_ttl"`
}

// TelegramConfig enables proposal alerts when Token is set
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// NATSConfig enables proposal events when URL is set
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// LoadConfig loads configuration from .env, the config file and environment
// variables. An explicit path overrides the config file search.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", "1h")

	viper.SetDefault("mail.delivery", "smtp")
	viper.SetDefault("mail.from_name", "Procurement Team")

	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.tls_mode", "starttls")
	viper.SetDefault("smtp.timeout", "30s")

	viper.SetDefault("imap.host", "imap.gmail.com")
	viper.SetDefault("imap.port", 993)
	viper.SetDefault("imap.mailbox", "INBOX")
	viper.SetDefault("imap.tls", true)

	viper.SetDefault("pipeline.source", "imap")
	viper.SetDefault("pipeline.subject_marker", "RFP")
	viper.SetDefault("pipeline.lookback", "168h")
	viper.SetDefault("pipeline.mailbox_timeout", "60s")
	viper.SetDefault("pipeline.workers", 1)

	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.timeout", "90s")

	viper.SetDefault("redis.claim_ttl", "15m")

	viper.SetDefault("nats.subject", "rfp.proposal.received")

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.interval_minutes", 5)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", true)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "PORT", "SERVER_PORT")

	// Database
	viper.BindEnv("database.driver", "DB_DRIVER")
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")
	viper.BindEnv("database.sslmode", "DB_SSLMODE")

	// Mail
	viper.BindEnv("mail.delivery", "MAIL_DELIVERY")
	viper.BindEnv("mail.from_address", "EMAIL_FROM", "SMTP_USER")
	viper.BindEnv("smtp.host", "SMTP_HOST")
	viper.BindEnv("smtp.port", "SMTP_PORT")
	viper.BindEnv("smtp.username", "SMTP_USER")
	viper.BindEnv("smtp.password", "SMTP_PASSWORD")
	viper.BindEnv("imap.host", "IMAP_HOST")
	viper.BindEnv("imap.port", "IMAP_PORT")
	viper.BindEnv("imap.username", "IMAP_USER")
	viper.BindEnv("imap.password", "IMAP_PASSWORD")

	// Gmail
	viper.BindEnv("gmail.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("gmail.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("gmail.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("gmail.user_email", "GMAIL_USER_EMAIL")

	// AI
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("ai.api_key", "AI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.model", "AI_MODEL")

	// Integrations
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN")
	viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
	viper.BindEnv("nats.url", "NATS_URL")

	// Scheduler
	viper.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
}

// GetDSN returns the connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	default:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	switch c.Mail.Delivery {
	case "smtp":
		if c.SMTP.Host == "" || c.SMTP.Port == 0 {
			return fmt.Errorf("SMTP host and port are required for smtp delivery")
		}
	case "gmail":
		if err := c.Gmail.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported mail delivery %q", c.Mail.Delivery)
	}
	if c.Mail.FromAddress == "" {
		return fmt.Errorf("mail from address is required")
	}

	switch c.Pipeline.Source {
	case "imap":
		if c.IMAP.Host == "" || c.IMAP.Username == "" || c.IMAP.Password == "" {
			return fmt.Errorf("IMAP host and credentials are required when using IMAP")
		}
	case "gmail":
		if err := c.Gmail.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported pipeline source %q", c.Pipeline.Source)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline workers must be greater than 0")
	}
	if c.Pipeline.Lookback <= 0 {
		return fmt.Errorf("pipeline lookback must be greater than 0")
	}

	switch c.AI.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported ai provider %q", c.AI.Provider)
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai api key is required")
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat id is required when a bot token is set")
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return nil
}

// Validate checks only the database section, for commands that need nothing else
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if c.Host == "" || c.User == "" || c.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}
	return nil
}

func (g GmailConfig) validate() error {
	if g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "" {
		return fmt.Errorf("Gmail OAuth2 credentials are required")
	}
	return nil
}
