package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	PushLog   = "log"
	PushHTTP  = "http"
	PushKafka = "kafka"
)

const envPrefix = "RITUALCAL_"

type Config struct {
	Timezone           string        `yaml:"timezone"`
	BroadcastTime      string        `yaml:"broadcast_time"`
	MaxTokens          int           `yaml:"max_tokens"`
	DailySkipCompleted bool          `yaml:"daily_skip_completed"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`

	Store       string `yaml:"store"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	Push         string   `yaml:"push"`
	PushEndpoint string   `yaml:"push_endpoint"`
	PushAPIKey   string   `yaml:"push_api_key"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	HTTPAddr string `yaml:"http_addr"`

	CacheDir             string        `yaml:"cache_dir"`
	CalendarID           string        `yaml:"calendar_id"`
	AckTimeout           time.Duration `yaml:"ack_timeout"`
	LogFile              string        `yaml:"log_file"`
	DesktopNotifications bool          `yaml:"desktop_notifications"`
	ProjectionDays       int           `yaml:"projection_days"`
}

func Default() Config {
	return Config{
		Timezone:       "Europe/Moscow",
		BroadcastTime:  "19:00",
		MaxTokens:      10,
		SweepInterval:  time.Minute,
		Store:          StoreSQLite,
		SQLitePath:     "ritualcal.db",
		Push:           PushLog,
		KafkaTopic:     "ritual-notifications",
		HTTPAddr:       ":8080",
		CacheDir:       ".ritualcal",
		AckTimeout:     2 * time.Second,
		ProjectionDays: 42,
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and RITUALCAL_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvString("BROADCAST_TIME"); ok {
		cfg.BroadcastTime = v
	}
	if v, ok := getEnvInt("MAX_TOKENS"); ok && v > 0 {
		cfg.MaxTokens = v
	}
	if v, ok := getEnvBool("DAILY_SKIP_COMPLETED"); ok {
		cfg.DailySkipCompleted = v
	}
	if v, ok := getEnvDuration("SWEEP_INTERVAL"); ok && v > 0 {
		cfg.SweepInterval = v
	}
	if v, ok := getEnvString("STORE"); ok {
		cfg.Store = strings.ToLower(v)
	}
	if v, ok := getEnvString("SQLITE_PATH"); ok {
		cfg.SQLitePath = v
	}
	if v, ok := getEnvString("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := getEnvString("REDIS_URL"); ok {
		cfg.RedisURL = v
	}
	if v, ok := getEnvString("PUSH"); ok {
		cfg.Push = strings.ToLower(v)
	}
	if v, ok := getEnvString("PUSH_ENDPOINT"); ok {
		cfg.PushEndpoint = v
	}
	if v, ok := getEnvString("PUSH_API_KEY"); ok {
		cfg.PushAPIKey = v
	}
	if v, ok := getEnvString("KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	if v, ok := getEnvString("KAFKA_TOPIC"); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := getEnvString("HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := getEnvString("CACHE_DIR"); ok {
		cfg.CacheDir = v
	}
	if v, ok := getEnvString("CALENDAR_ID"); ok {
		cfg.CalendarID = v
	}
	if v, ok := getEnvDuration("ACK_TIMEOUT"); ok && v > 0 {
		cfg.AckTimeout = v
	}
	if v, ok := getEnvString("LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvBool("DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvInt("PROJECTION_DAYS"); ok && v > 0 {
		cfg.ProjectionDays = v
	}
	return cfg
}

func (c Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if _, err := model.ParseClock(c.BroadcastTime); err != nil {
		errs = append(errs, fmt.Errorf("broadcast_time: %w", err))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep_interval must be positive, got %s", c.SweepInterval))
	}
	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite_path is required for the sqlite store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	switch c.Push {
	case PushLog:
	case PushHTTP:
		if c.PushEndpoint == "" {
			errs = append(errs, errors.New("push_endpoint is required for http push"))
		}
	case PushKafka:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			errs = append(errs, errors.New("kafka_brokers and kafka_topic are required for kafka push"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown push transport %q", c.Push))
	}
	if c.ProjectionDays <= 0 {
		errs = append(errs, fmt.Errorf("projection_days must be positive, got %d", c.ProjectionDays))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Location resolves Timezone; call after Validate.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) Broadcast() model.ClockTime {
	return model.ClockTime(c.BroadcastTime)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
