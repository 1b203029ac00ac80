package main

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyNormal
	DifficultyHard
	numDifficulties
)

var (
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidConfig     = errors.New("invalid config")
)

func (d Difficulty) IsValid() bool {
	return d >= DifficultyEasy && d < numDifficulties
}

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyNormal:
		return "normal"
	case DifficultyHard:
		return "hard"
	default:
		return "unknown"
	}
}

type Config struct {
	Profiles   [numDifficulties]SearchProfile `json:"profiles"`
	TTCapacity int                            `json:"tt_capacity"`
	BanHand    bool                           `json:"ban_hand"`
	LogLevel   string                         `json:"log_level"`
	LogPretty  bool                           `json:"log_pretty"`
	ListenAddr string                         `json:"listen_addr"`
	DBPath     string                         `json:"db_path"`
	RecordPath string                         `json:"record_path"`
	TickMs     int                            `json:"tick_ms"`
}

type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

func DefaultConfig() Config {
	return Config{
		Profiles: [numDifficulties]SearchProfile{
			DifficultyEasy:   {TimeBudgetMs: 500, MaxDepth: 3, MaxCandidates: 10},
			DifficultyNormal: {TimeBudgetMs: 1000, MaxDepth: 5, MaxCandidates: 14},
			DifficultyHard:   {TimeBudgetMs: 2000, MaxDepth: 7, MaxCandidates: 20},
		},
		TTCapacity: 1 << 20,
		BanHand:    true,
		LogLevel:   "info",
		LogPretty:  false,
		ListenAddr: ":8080",
		DBPath:     "data/games.db",
		RecordPath: "record.txt",
		TickMs:     50,
	}
}

// Profile returns a copy of the search profile for d; unknown values fall
// back to normal.
func (c Config) Profile(d Difficulty) SearchProfile {
	if !d.IsValid() {
		d = DifficultyNormal
	}
	return c.Profiles[d]
}

func (c Config) Validate() error {
	for d, profile := range c.Profiles {
		if profile.TimeBudgetMs <= 0 || profile.MaxDepth <= 0 || profile.MaxCandidates <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "profile %s: %+v", Difficulty(d), profile)
		}
	}
	if c.TTCapacity <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "tt_capacity %d", c.TTCapacity)
	}
	if c.TickMs <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "tick_ms %d", c.TickMs)
	}
	return nil
}

// LoadConfig starts from the defaults, merges the JSON file named by
// GOMOKU_CONFIG and then applies the single-value env overrides.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("GOMOKU_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.ListenAddr = getEnv("GOMOKU_ADDR", cfg.ListenAddr)
	cfg.DBPath = getEnv("GOMOKU_DB", cfg.DBPath)
	cfg.RecordPath = getEnv("GOMOKU_RECORD", cfg.RecordPath)
	cfg.LogLevel = getEnv("GOMOKU_LOG_LEVEL", cfg.LogLevel)
	if os.Getenv("GOMOKU_LOG_PRETTY") == "1" {
		cfg.LogPretty = true
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

var configStore = &ConfigStore{config: DefaultConfig()}

func GetConfig() Config {
	return configStore.Get()
}

func (c *ConfigStore) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ConfigStore) Update(newConfig Config) {
	c.mu.Lock()
	c.config = newConfig
	c.mu.Unlock()
}
