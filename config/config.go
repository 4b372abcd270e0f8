package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 預設值
const (
	DefaultName         = "skipkv"
	DefaultMaxLevel     = 10
	DefaultSnapshotPath = "store/dumpFile"
	DefaultDelimiter    = ":"
	DefaultLogLevel     = "info"

	// MaxLevelLimit 足以容納約 2^32 筆資料
	MaxLevelLimit = 32
)

type Config struct {
	Name         string `yaml:"name"`
	MaxLevel     int    `yaml:"max_level"`
	Seed         int64  `yaml:"seed"` // 0 表示以時間為種子
	SnapshotPath string `yaml:"snapshot_path"`
	Delimiter    string `yaml:"delimiter"`
	LogLevel     string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Name:         DefaultName,
		MaxLevel:     DefaultMaxLevel,
		SnapshotPath: DefaultSnapshotPath,
		Delimiter:    DefaultDelimiter,
		LogLevel:     DefaultLogLevel,
	}
}

// Load 先套用預設值，再以嚴格模式讀取 YAML；path 為空時直接回傳預設值
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	return decode(file, cfg)
}

// Parse 與 Load 相同，但從 r 讀取
func Parse(r io.Reader) (Config, error) {
	return decode(r, Default())
}

func decode(r io.Reader, cfg Config) (Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config syntax error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.Name == "" {
		return errors.New("config: name cannot be empty")
	}
	if cfg.MaxLevel < 0 || cfg.MaxLevel > MaxLevelLimit {
		return fmt.Errorf("config: max_level must be in [0, %d], but %d was given", MaxLevelLimit, cfg.MaxLevel)
	}
	if cfg.SnapshotPath == "" {
		return errors.New("config: snapshot_path cannot be empty")
	}
	if cfg.Delimiter == "" || strings.ContainsAny(cfg.Delimiter, "\r\n") {
		return fmt.Errorf("config: invalid delimiter %q", cfg.Delimiter)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log_level %q", s)
}

// NewLogger 依 log_level 建立寫到 w 的 text logger
func (cfg Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(cfg.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Dump 將設定寫回 YAML 檔
func (cfg Config) Dump(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
