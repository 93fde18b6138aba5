package command

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mwantia/histfs/cli/tui"
	"github.com/mwantia/histfs/config"
	"github.com/mwantia/histfs/log"
)

type Browse struct {
	DebugLog string `name:"debug-log" help:"Write browser debug output to a file" placeholder:"<file>"`
}

func (c *Browse) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := g.LoadConfig()
	if err != nil {
		die("load config: %v", err)
		return err
	}

	// The terminal belongs to bubbletea, so the engine only logs to files.
	logFile := cfg.Log.File
	if c.DebugLog != "" {
		logFile = c.DebugLog
	}
	level, err := log.Parse(cfg.Log.Level)
	if err != nil {
		return err
	}
	if c.DebugLog != "" {
		level = log.Debug
	}
	logger := tui.NewDebugLogger(logFile, level)
	defer logger.Close()

	fsys, err := config.Build(ctx, cfg, logger)
	if err != nil {
		die("open histfs: %v", err)
		return err
	}
	defer fsys.Close(context.Background(), true)

	model := tui.NewModel(ctx, fsys, cfg.Retention.Keep, logger.Named("tui"))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		die("browser: %v", err)
		return err
	}
	return nil
}
