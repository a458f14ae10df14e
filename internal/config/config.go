package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Esign    EsignConfig
	Mail     MailConfig
	Reminder ReminderConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type EsignConfig struct {
	BaseURL           string
	APIKey            string
	TemplateID        int
	WebhookSecret     string
	RequestTimeout    time.Duration
	RecreateOnDecline bool
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ReplyTo  string
}

type ReminderConfig struct {
	NormalHours   float64
	UrgentHours   float64
	CriticalHours float64
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "moonbounce")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "moonbounce")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ESIGN_BASE_URL", "https://api.docuseal.com")
	viper.SetDefault("ESIGN_API_KEY", "")
	viper.SetDefault("ESIGN_TEMPLATE_ID", 0)
	viper.SetDefault("ESIGN_WEBHOOK_SECRET", "")
	viper.SetDefault("ESIGN_REQUEST_TIMEOUT", "10s")
	viper.SetDefault("ESIGN_RECREATE_ON_DECLINE", true)
	viper.SetDefault("MAIL_HOST", "localhost")
	viper.SetDefault("MAIL_PORT", 587)
	viper.SetDefault("MAIL_USERNAME", "")
	viper.SetDefault("MAIL_PASSWORD", "")
	viper.SetDefault("MAIL_FROM", "bookings@moonbounce.example")
	viper.SetDefault("MAIL_REPLY_TO", "")
	viper.SetDefault("REMINDER_NORMAL_HOURS", 48.0)
	viper.SetDefault("REMINDER_URGENT_HOURS", 24.0)
	viper.SetDefault("REMINDER_CRITICAL_HOURS", 8.0)
	viper.SetDefault("REMINDER_SWEEP_INTERVAL", "15m")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}

	esignTimeout, err := time.ParseDuration(viper.GetString("ESIGN_REQUEST_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("REMINDER_SWEEP_INTERVAL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Esign: EsignConfig{
			BaseURL:           viper.GetString("ESIGN_BASE_URL"),
			APIKey:            viper.GetString("ESIGN_API_KEY"),
			TemplateID:        viper.GetInt("ESIGN_TEMPLATE_ID"),
			WebhookSecret:     viper.GetString("ESIGN_WEBHOOK_SECRET"),
			RequestTimeout:    esignTimeout,
			RecreateOnDecline: viper.GetBool("ESIGN_RECREATE_ON_DECLINE"),
		},
		Mail: MailConfig{
			Host:     viper.GetString("MAIL_HOST"),
			Port:     viper.GetInt("MAIL_PORT"),
			Username: viper.GetString("MAIL_USERNAME"),
			Password: viper.GetString("MAIL_PASSWORD"),
			From:     viper.GetString("MAIL_FROM"),
			ReplyTo:  viper.GetString("MAIL_REPLY_TO"),
		},
		Reminder: ReminderConfig{
			NormalHours:   viper.GetFloat64("REMINDER_NORMAL_HOURS"),
			UrgentHours:   viper.GetFloat64("REMINDER_URGENT_HOURS"),
			CriticalHours: viper.GetFloat64("REMINDER_CRITICAL_HOURS"),
			SweepInterval: sweepInterval,
		},
	}

	return cfg, nil
}
