package command

import (
	"context"

	"github.com/mwantia/histfs/config"
	"github.com/mwantia/histfs/mount"
)

type Mount struct {
	Mountpoint string `arg:"" name:"mountpoint" help:"Directory to mount the versioned view on" type:"path"`
	AllowOther bool   `name:"allow-other" help:"Let other users access the mount"`
	Debug      bool   `name:"debug" help:"Log every FUSE request"`
}

func (c *Mount) Run(g *Globals) error {
	cfg, err := g.LoadConfig()
	if err != nil {
		die("load config: %v", err)
		return err
	}
	logger, err := cfg.NewLogger("histfs")
	if err != nil {
		die("create logger: %v", err)
		return err
	}
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	fsys, err := config.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open histfs: %v", err)
		return err
	}
	defer func() {
		if err := fsys.Close(context.Background(), true); err != nil {
			logger.Warn("Failed to close histfs: %v", err)
		}
	}()

	logger.Info("Mounting '%s' on '%s'", cfg.DataDir, c.Mountpoint)
	err = mount.Serve(ctx, fsys, cfg.DataDir, c.Mountpoint,
		mount.WithLogger(logger),
		mount.WithAllowOther(c.AllowOther || cfg.Fuse.AllowOther),
		mount.WithDebug(c.Debug || cfg.Fuse.Debug),
	)
	if err != nil {
		logger.Error("Mount failed: %v", err)
		return err
	}

	logger.Info("Unmounted '%s'", c.Mountpoint)
	return nil
}
