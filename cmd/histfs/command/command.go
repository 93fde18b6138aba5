package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mwantia/histfs"
	"github.com/mwantia/histfs/config"
	"github.com/mwantia/histfs/log"
)

type Globals struct {
	ConfigFile string      `short:"c" name:"config" help:"Path to the configuration file, defaults to $HISTFS_CONFIG" type:"path" placeholder:"<file>"`
	DataDir    string      `short:"d" name:"data-dir" help:"Override data_dir from the configuration" type:"path" placeholder:"<dir>"`
	Verbose    bool        `short:"V" help:"Make the operation more talkative"`
	Version    VersionFlag `short:"v" name:"version" help:"Show version number and quit"`
}

type VersionFlag bool

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

// LoadConfig reads the configuration and applies the global overrides.
func (g *Globals) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.ConfigFile, true)
	if err != nil {
		return nil, err
	}
	if g.DataDir != "" {
		cfg.DataDir = g.DataDir
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if g.Verbose {
		cfg.Log.Level = log.Debug.String()
	}
	return cfg, nil
}

// quietLogger is used by commands that own stdout. It only writes to the
// configured log file, or to stderr with --verbose.
func (g *Globals) quietLogger(cfg *config.Config) (*log.Logger, error) {
	if g.Verbose {
		return log.NewWriterLogger("histfs", log.Debug, os.Stderr), nil
	}
	if cfg.Log.File == "" {
		return log.NewNop(), nil
	}

	level, err := log.Parse(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return log.NewLogger("histfs", level, cfg.Log.File, true), nil
}

// open builds the engine for one-shot commands. The returned func closes it.
func (g *Globals) open(ctx context.Context) (*histfs.FileSystem, *config.Config, func(), error) {
	cfg, err := g.LoadConfig()
	if err != nil {
		die("load config: %v", err)
		return nil, nil, nil, err
	}
	logger, err := g.quietLogger(cfg)
	if err != nil {
		die("create logger: %v", err)
		return nil, nil, nil, err
	}

	fsys, err := config.Build(ctx, cfg, logger)
	if err != nil {
		logger.Close()
		die("open histfs: %v", err)
		return nil, nil, nil, err
	}

	closer := func() {
		if err := fsys.Close(context.Background(), true); err != nil {
			logger.Warn("Failed to close histfs: %v", err)
		}
		logger.Close()
	}
	return fsys, cfg, closer, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func die(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "histfs: "+format+"\n", a...)
}
