package colseg

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/codec"
	"github.com/hupe1980/colseg/deepstore"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the segment options.
type Config struct {
	ReadMode     string          `yaml:"readMode"`
	PadByte      int             `yaml:"padByte"`
	NullToken    string          `yaml:"nullToken"`
	IndexRemoval *bool           `yaml:"indexRemoval"`
	Limits       LimitsConfig    `yaml:"limits"`
	Log          LogConfig       `yaml:"log"`
	DeepStore    DeepStoreConfig `yaml:"deepStore"`
}

// LimitsConfig bounds memory, IO and transfer parallelism.
type LimitsConfig struct {
	MemoryBytes        int64 `yaml:"memoryBytes"`
	IOBytesPerSec      int64 `yaml:"ioBytesPerSec"`
	ConcurrentTransfer int64 `yaml:"concurrentTransfers"`
}

// LogConfig selects the logger. Format is "text" or "json"; an empty
// level disables logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DeepStoreConfig configures Push and Fetch.
type DeepStoreConfig struct {
	Compression string `yaml:"compression"`
	BlockSize   int    `yaml:"blockSize"`
	Concurrency int    `yaml:"concurrency"`
	Codec       string `yaml:"codec"`
}

// LoadConfig reads a YAML config file. A leading "~/" is expanded to the
// home directory.
func LoadConfig(path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("colseg: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config values that Options would otherwise reject.
func (c *Config) Validate() error {
	if _, err := buffer.ParseReadMode(c.ReadMode); err != nil {
		return fmt.Errorf("colseg: %w", err)
	}
	if c.PadByte < 0 || c.PadByte > 255 {
		return fmt.Errorf("colseg: padByte %d out of range", c.PadByte)
	}
	if c.Log.Level != "" {
		if _, err := parseLevel(c.Log.Level); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("colseg: unknown log format %q", c.Log.Format)
	}
	if c.DeepStore.Compression != "" {
		if _, err := deepstore.ParseCompression(c.DeepStore.Compression); err != nil {
			return err
		}
	}
	if c.DeepStore.Codec != "" {
		if _, ok := codec.ByName(c.DeepStore.Codec); !ok {
			return fmt.Errorf("colseg: unknown codec %q", c.DeepStore.Codec)
		}
	}
	return nil
}

// Options converts the config into functional options. Call Validate (or
// use LoadConfig) first; invalid values are skipped.
func (c *Config) Options() []Option {
	var opts []Option
	if m, err := buffer.ParseReadMode(c.ReadMode); err == nil {
		opts = append(opts, WithReadMode(m))
	}
	if c.PadByte > 0 && c.PadByte <= 255 {
		opts = append(opts, WithPadByte(byte(c.PadByte)))
	}
	if c.NullToken != "" {
		opts = append(opts, WithNullToken(c.NullToken))
	}
	if c.IndexRemoval != nil {
		opts = append(opts, WithIndexRemoval(*c.IndexRemoval))
	}
	if c.Limits.MemoryBytes > 0 {
		opts = append(opts, WithMemoryLimit(c.Limits.MemoryBytes))
	}
	if c.Limits.IOBytesPerSec > 0 {
		opts = append(opts, WithIOLimit(c.Limits.IOBytesPerSec))
	}
	if c.Limits.ConcurrentTransfer > 0 {
		opts = append(opts, WithMaxConcurrentTransfers(c.Limits.ConcurrentTransfer))
	}
	if level, err := parseLevel(c.Log.Level); err == nil && c.Log.Level != "" {
		if strings.EqualFold(c.Log.Format, "json") {
			opts = append(opts, WithLogger(NewJSONLogger(level)))
		} else {
			opts = append(opts, WithLogger(NewTextLogger(level)))
		}
	}

	var ds []deepstore.Option
	if comp, err := deepstore.ParseCompression(c.DeepStore.Compression); err == nil && c.DeepStore.Compression != "" {
		ds = append(ds, deepstore.WithCompression(comp))
	}
	if c.DeepStore.BlockSize > 0 {
		ds = append(ds, deepstore.WithBlockSize(c.DeepStore.BlockSize))
	}
	if c.DeepStore.Concurrency > 0 {
		ds = append(ds, deepstore.WithConcurrency(c.DeepStore.Concurrency))
	}
	if cd, ok := codec.ByName(c.DeepStore.Codec); ok {
		ds = append(ds, deepstore.WithCodec(cd))
	}
	if len(ds) > 0 {
		opts = append(opts, WithDeepStoreOptions(ds...))
	}
	return opts
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("colseg: unknown log level %q", s)
	}
	return level, nil
}

func expandUserPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
