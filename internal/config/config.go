// Package config loads the daemon and engine settings from an optional YAML
// file. Anything the file leaves out keeps its default; command-line flags
// are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/habit-tracker/internal/stats"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultStorageKey is the fixed identifier the state blob is stored under.
const DefaultStorageKey = "dt.stats.v9"

// MinSyncInterval is the floor on remote snapshot uploads.
const MinSyncInterval = 15 * time.Second

// Config is the fully resolved configuration.
type Config struct {
	Engine stats.Config
	Daemon Daemon
}

// Daemon holds the process-level settings.
type Daemon struct {
	HTTPAddr    string
	Broker      string
	TopicPrefix string
	UserID      string
	LogMode     string

	Store       string
	StorageKey  string
	SQLitePath  string
	RedisAddr   string
	PostgresDSN string

	Heartbeat       time.Duration
	AdvanceInterval time.Duration
	SyncInterval    time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: stats.DefaultConfig(),
		Daemon: Daemon{
			HTTPAddr:        ":8080",
			Broker:          "tcp://localhost:1883",
			TopicPrefix:     "habits",
			UserID:          "local",
			LogMode:         "dev",
			Store:           BackendSQLite,
			StorageKey:      DefaultStorageKey,
			SQLitePath:      "habits.db",
			RedisAddr:       "localhost:6379",
			Heartbeat:       15 * time.Minute,
			AdvanceInterval: time.Minute,
			SyncInterval:    MinSyncInterval,
		},
	}
}

type fileConfig struct {
	Engine fileEngine `yaml:"engine"`
	Daemon fileDaemon `yaml:"daemon"`
}

type fileEngine struct {
	ActiveStart        string      `yaml:"active_start"`
	ActiveEnd          string      `yaml:"active_end"`
	Timezone           string      `yaml:"timezone"`
	DecayPerActiveHour *float64    `yaml:"decay_per_active_hour"`
	SleepThreshold     string      `yaml:"sleep_threshold"`
	LevelTrigger       *float64    `yaml:"level_trigger"`
	CoinsPerLevel      *int        `yaml:"coins_per_level"`
	StartingCoins      *int        `yaml:"starting_coins"`
	StartingHealth     *float64    `yaml:"starting_health"`
	MaxDailyKindness   *int        `yaml:"max_daily_kindness"`
	Points             *filePoints `yaml:"points"`
}

type filePoints struct {
	MorningPrayer *float64 `yaml:"morning_prayer"`
	EveningPrayer *float64 `yaml:"evening_prayer"`
	Scripture     *float64 `yaml:"scripture"`
	Service       *float64 `yaml:"service"`
	Kindness      *float64 `yaml:"kindness"`
	Church        *float64 `yaml:"church"`
	Mutual        *float64 `yaml:"mutual"`
	Temple        *float64 `yaml:"temple"`
	Badge         *float64 `yaml:"badge"`
	SleepBonus    *float64 `yaml:"sleep_bonus"`
	SleepPenalty  *float64 `yaml:"sleep_penalty"`
}

type fileDaemon struct {
	HTTPAddr        *string `yaml:"http"`
	Broker          *string `yaml:"broker"`
	TopicPrefix     *string `yaml:"topic_prefix"`
	UserID          *string `yaml:"user_id"`
	LogMode         *string `yaml:"log_mode"`
	Store           *string `yaml:"store"`
	StorageKey      *string `yaml:"storage_key"`
	SQLitePath      *string `yaml:"sqlite_path"`
	RedisAddr       *string `yaml:"redis_addr"`
	PostgresDSN     *string `yaml:"postgres_dsn"`
	Heartbeat       string  `yaml:"heartbeat"`
	AdvanceInterval string  `yaml:"advance_interval"`
	SyncInterval    string  `yaml:"sync_interval"`
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.apply(data); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse applies YAML data over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.apply(data); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(data []byte) error {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if err := c.applyEngine(f.Engine); err != nil {
		return err
	}
	if err := c.applyDaemon(f.Daemon); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) applyEngine(f fileEngine) error {
	e := &c.Engine
	var err error
	if f.ActiveStart != "" {
		if e.ActiveStart, err = stats.ParseClock(f.ActiveStart); err != nil {
			return fmt.Errorf("engine.active_start: %w", err)
		}
	}
	if f.ActiveEnd != "" {
		if e.ActiveEnd, err = stats.ParseClock(f.ActiveEnd); err != nil {
			return fmt.Errorf("engine.active_end: %w", err)
		}
	}
	if f.Timezone != "" {
		if e.Location, err = time.LoadLocation(f.Timezone); err != nil {
			return fmt.Errorf("engine.timezone: %w", err)
		}
	}
	if f.SleepThreshold != "" {
		if e.SleepThreshold, err = time.ParseDuration(f.SleepThreshold); err != nil {
			return fmt.Errorf("engine.sleep_threshold: %w", err)
		}
	}
	setFloat(&e.DecayPerActiveHour, f.DecayPerActiveHour)
	setFloat(&e.LevelTrigger, f.LevelTrigger)
	setFloat(&e.StartingHealth, f.StartingHealth)
	setInt(&e.CoinsPerLevel, f.CoinsPerLevel)
	setInt(&e.StartingCoins, f.StartingCoins)
	setInt(&e.MaxDailyKindness, f.MaxDailyKindness)

	if p := f.Points; p != nil {
		setFloat(&e.Points.MorningPrayer, p.MorningPrayer)
		setFloat(&e.Points.EveningPrayer, p.EveningPrayer)
		setFloat(&e.Points.Scripture, p.Scripture)
		setFloat(&e.Points.Service, p.Service)
		setFloat(&e.Points.Kindness, p.Kindness)
		setFloat(&e.Points.Church, p.Church)
		setFloat(&e.Points.Mutual, p.Mutual)
		setFloat(&e.Points.Temple, p.Temple)
		setFloat(&e.Points.Badge, p.Badge)
		setFloat(&e.Points.SleepBonus, p.SleepBonus)
		setFloat(&e.Points.SleepPenalty, p.SleepPenalty)
	}
	return nil
}

func (c *Config) applyDaemon(f fileDaemon) error {
	d := &c.Daemon
	setString(&d.HTTPAddr, f.HTTPAddr)
	setString(&d.Broker, f.Broker)
	setString(&d.TopicPrefix, f.TopicPrefix)
	setString(&d.UserID, f.UserID)
	setString(&d.LogMode, f.LogMode)
	setString(&d.Store, f.Store)
	setString(&d.StorageKey, f.StorageKey)
	setString(&d.SQLitePath, f.SQLitePath)
	setString(&d.RedisAddr, f.RedisAddr)
	setString(&d.PostgresDSN, f.PostgresDSN)

	for _, dur := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"daemon.heartbeat", f.Heartbeat, &d.Heartbeat},
		{"daemon.advance_interval", f.AdvanceInterval, &d.AdvanceInterval},
		{"daemon.sync_interval", f.SyncInterval, &d.SyncInterval},
	} {
		if dur.raw == "" {
			continue
		}
		v, err := time.ParseDuration(dur.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", dur.name, err)
		}
		*dur.dst = v
	}
	return nil
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	var errs []error
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	d := c.Daemon
	switch d.Store {
	case BackendSQLite:
		if d.SQLitePath == "" {
			errs = append(errs, errors.New("daemon.sqlite_path is required for the sqlite store"))
		}
	case BackendRedis:
		if d.RedisAddr == "" {
			errs = append(errs, errors.New("daemon.redis_addr is required for the redis store"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("daemon.store: unknown backend %q", d.Store))
	}
	if strings.TrimSpace(d.StorageKey) == "" {
		errs = append(errs, errors.New("daemon.storage_key is required"))
	}
	if strings.TrimSpace(d.UserID) == "" {
		errs = append(errs, errors.New("daemon.user_id is required"))
	}
	if d.SyncInterval < MinSyncInterval {
		errs = append(errs, fmt.Errorf("daemon.sync_interval must be at least %v", MinSyncInterval))
	}
	if d.AdvanceInterval <= 0 {
		errs = append(errs, errors.New("daemon.advance_interval must be > 0"))
	}
	if d.Heartbeat < 0 {
		errs = append(errs, errors.New("daemon.heartbeat must be >= 0"))
	}
	return errors.Join(errs...)
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
