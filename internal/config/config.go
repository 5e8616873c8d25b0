package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP   HTTPConfig   `mapstructure:"http"`
	Log    LogConfig    `mapstructure:"log"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Queues QueuesConfig `mapstructure:"queues"`
	SMTP   SMTPConfig   `mapstructure:"smtp"`
	Mailer MailerConfig `mapstructure:"mailer"`
	Events EventsConfig `mapstructure:"events"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// QueuesConfig carries the deployment-specific queue name per pipeline
// stage. The retrying queue is folded into processing but stays named for
// wire compatibility.
type QueuesConfig struct {
	Awaiting   string `mapstructure:"awaiting"`
	Processing string `mapstructure:"processing"`
	Retrying   string `mapstructure:"retrying"`
	Success    string `mapstructure:"success"`
	Failure    string `mapstructure:"failure"`
}

type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Encryption string `mapstructure:"encryption"` // local|basic|starttls|tls
}

type MailerConfig struct {
	FromName          string        `mapstructure:"from_name"`
	FromEmail         string        `mapstructure:"from_email"`
	MaxRetrials       int16         `mapstructure:"max_retrials"`
	ProcessingPollers int           `mapstructure:"processing_pollers"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

type EventsConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether lifecycle events should be published.
func (e EventsConfig) Enabled() bool {
	return len(e.Brokers) > 0 && e.Topic != ""
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (MAILER_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (MAILER_*); nested keys use underscores,
	// e.g. smtp.host -> MAILER_SMTP_HOST
	v.SetEnvPrefix("MAILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
