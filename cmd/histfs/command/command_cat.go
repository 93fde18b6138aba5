package command

import (
	"io"
	"os"
)

type Cat struct {
	Path   string `arg:"" name:"path" help:"File path relative to the data directory"`
	Number uint64 `arg:"" name:"version" help:"Version number to show"`
	Output string `short:"o" name:"output" help:"Output to a specific file instead of stdout" placeholder:"<file>"`
}

func (c *Cat) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	fsys, _, closer, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer closer()

	rc, err := fsys.OpenVersion(ctx, c.Path, c.Number)
	if err != nil {
		die("open '%s' v%d: %v", c.Path, c.Number, err)
		return err
	}
	defer rc.Close()

	var w io.Writer = os.Stdout
	if c.Output != "" {
		fd, err := os.Create(c.Output)
		if err != nil {
			die("create output: %v", err)
			return err
		}
		defer fd.Close()
		w = fd
	}

	if _, err := io.Copy(w, rc); err != nil {
		die("read '%s' v%d: %v", c.Path, c.Number, err)
		return err
	}
	return nil
}
