package command

import (
	"fmt"

	"github.com/mwantia/histfs/data"
)

type Restore struct {
	Path     string `arg:"" name:"path" help:"File path relative to the data directory"`
	Number   uint64 `arg:"" name:"version" help:"Version number to restore"`
	Snapshot bool   `name:"snapshot" help:"Archive the current content before restoring" negatable:"" default:"true"`
}

func (c *Restore) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	fsys, _, closer, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if c.Snapshot {
		v, err := fsys.CreateVersion(ctx, c.Path)
		if err != nil {
			die("archive current content of '%s': %v", c.Path, err)
			return err
		}
		if v != nil {
			fmt.Printf("%s: archived current content as v%d\n", c.Path, v.Number)
		}
	}

	found, err := fsys.Restore(ctx, c.Path, c.Number)
	if err != nil {
		die("restore '%s' v%d: %v", c.Path, c.Number, err)
		return err
	}
	if !found {
		die("'%s' has no version %d", c.Path, c.Number)
		return data.ErrNotExist
	}

	fmt.Printf("%s: restored v%d\n", c.Path, c.Number)
	return nil
}
