package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/log"
)

const (
	EnvConfig  = "HISTFS_CONFIG"
	EnvDataDir = "HISTFS_DATA_DIR"
)

type Config struct {
	DataDir   string          `toml:"data_dir"`
	Archive   ArchiveConfig   `toml:"archive"`
	Ledger    LedgerConfig    `toml:"ledger"`
	S3        S3Config        `toml:"s3,omitempty"`
	Consul    ConsulConfig    `toml:"consul,omitempty"`
	Retention RetentionConfig `toml:"retention"`
	Log       LogConfig       `toml:"log"`
	Fuse      FuseConfig      `toml:"fuse"`
}

// ArchiveConfig selects where version blobs are stored.
type ArchiveConfig struct {
	Type string `toml:"type"` // local, memory, sqlite, postgres, s3
	Path string `toml:"path,omitempty"`
	DSN  string `toml:"dsn,omitempty"`
}

// LedgerConfig selects where version ledgers are kept. A ledger of the same
// type and location as the archive shares its backend.
type LedgerConfig struct {
	Type string `toml:"type"` // local, memory, sqlite, postgres, consul
	Path string `toml:"path,omitempty"`
	DSN  string `toml:"dsn,omitempty"`
}

type S3Config struct {
	Endpoint     string `toml:"endpoint"`
	Bucket       string `toml:"bucket"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	Region       string `toml:"region,omitempty"`
	Prefix       string `toml:"prefix,omitempty"`
	UseSSL       bool   `toml:"use_ssl"`
	CreateBucket bool   `toml:"create_bucket,omitempty"`
}

type ConsulConfig struct {
	Address    string `toml:"address"`
	Token      string `toml:"token,omitempty"`
	Datacenter string `toml:"datacenter,omitempty"`
	Namespace  string `toml:"namespace,omitempty"`
	Prefix     string `toml:"prefix,omitempty"`
}

type RetentionConfig struct {
	// Keep is the number of versions prune leaves per file.
	Keep int `toml:"keep"`
	// Auto prunes after every snapshot instead of only on request.
	Auto bool `toml:"auto"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file,omitempty"`
	JSON       bool   `toml:"json"`
	NoTerminal bool   `toml:"no_terminal"`
	MaxSize    int    `toml:"max_size,omitempty"`
	MaxBackups int    `toml:"max_backups,omitempty"`
	MaxAge     int    `toml:"max_age,omitempty"`
	Compress   bool   `toml:"compress,omitempty"`
}

type FuseConfig struct {
	AllowOther bool `toml:"allow_other"`
	Debug      bool `toml:"debug"`
}

func Default() *Config {
	return &Config{
		DataDir: "./runtime/data",
		Archive: ArchiveConfig{
			Type: "local",
			Path: "./runtime/versions",
		},
		Ledger: LedgerConfig{
			Type: "local",
			Path: "./runtime/meta",
		},
		Consul: ConsulConfig{
			Address: "127.0.0.1:8500",
		},
		Retention: RetentionConfig{
			Keep: 10,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    128,
			MaxBackups: 5,
			MaxAge:     16,
		},
	}
}

// Load reads the TOML file at path on top of Default. An empty path falls back
// to $HISTFS_CONFIG and then to the defaults alone. With expandEnv set,
// ${VAR} references in the file are replaced before decoding.
func Load(path string, expandEnv bool) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		content := string(raw)
		if expandEnv {
			content = os.ExpandEnv(content)
		}
		if err := cfg.Decode(strings.NewReader(content)); err != nil {
			return nil, err
		}
	}

	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.DataDir = dir
	}

	return cfg, cfg.Validate()
}

// Decode overlays the TOML document in r onto cfg.
func (cfg *Config) Decode(r io.Reader) error {
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown config keys %v", data.ErrInvalid, undecoded)
	}
	return nil
}

// Encode writes cfg as TOML.
func (cfg *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}

func (cfg *Config) Validate() error {
	errs := data.Errors{}

	if cfg.DataDir == "" {
		errs.Add(fmt.Errorf("%w: data_dir is required", data.ErrInvalid))
	}
	if cfg.Retention.Keep < 1 {
		errs.Add(fmt.Errorf("%w: retention.keep must be at least 1", data.ErrInvalid))
	}
	if _, err := log.Parse(cfg.Log.Level); err != nil {
		errs.Add(err)
	}

	switch cfg.Archive.Type {
	case "local", "sqlite":
		errs.Add(cfg.validatePath("archive", cfg.Archive.Path))
	case "postgres":
		if cfg.Archive.DSN == "" {
			errs.Add(fmt.Errorf("%w: archive.dsn is required for postgres", data.ErrInvalid))
		}
	case "s3":
		if cfg.S3.Endpoint == "" || cfg.S3.Bucket == "" {
			errs.Add(fmt.Errorf("%w: s3.endpoint and s3.bucket are required", data.ErrInvalid))
		}
	case "memory":
	default:
		errs.Add(fmt.Errorf("%w: unknown archive type '%s'", data.ErrInvalid, cfg.Archive.Type))
	}

	switch cfg.Ledger.Type {
	case "local", "sqlite":
		errs.Add(cfg.validatePath("ledger", cfg.Ledger.Path))
	case "postgres":
		if cfg.Ledger.DSN == "" {
			errs.Add(fmt.Errorf("%w: ledger.dsn is required for postgres", data.ErrInvalid))
		}
	case "consul":
		if cfg.Consul.Address == "" {
			errs.Add(fmt.Errorf("%w: consul.address is required", data.ErrInvalid))
		}
	case "memory":
		if cfg.Archive.Type != "memory" {
			errs.Add(fmt.Errorf("%w: a memory ledger requires a memory archive", data.ErrInvalid))
		}
	default:
		errs.Add(fmt.Errorf("%w: unknown ledger type '%s'", data.ErrInvalid, cfg.Ledger.Type))
	}

	return errs.Errors()
}

// validatePath rejects archive and ledger locations inside the data dir, where
// they would show up in the mounted tree and be versioned themselves.
func (cfg *Config) validatePath(section, path string) error {
	if path == "" {
		return fmt.Errorf("%w: %s.path is required", data.ErrInvalid, section)
	}
	if cfg.DataDir == "" {
		return nil
	}

	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return err
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(dataDir, target)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s.path '%s' lies inside data_dir", data.ErrInvalid, section, path)
	}
	return nil
}

// NewLogger builds the process logger from the [log] section.
func (cfg *Config) NewLogger(name string) (*log.Logger, error) {
	level, err := log.Parse(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	opts := []log.LoggerOption{
		log.WithRotation(&log.LoggerRotation{
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}),
	}
	if cfg.Log.JSON {
		opts = append(opts, log.WithJSON())
	}

	return log.NewLogger(name, level, cfg.Log.File, cfg.Log.NoTerminal, opts...), nil
}
