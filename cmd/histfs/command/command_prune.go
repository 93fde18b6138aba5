package command

import "fmt"

type Prune struct {
	Path string `arg:"" optional:"" name:"path" help:"File to prune; all files when omitted"`
	Keep int    `short:"k" name:"keep" help:"Number of versions to keep, defaults to retention.keep"`
}

func (c *Prune) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	fsys, cfg, closer, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer closer()

	keep := c.Keep
	if keep == 0 {
		keep = cfg.Retention.Keep
	}

	var removed int
	if c.Path == "" {
		removed, err = fsys.PruneAll(ctx, keep)
	} else {
		removed, err = fsys.Prune(ctx, c.Path, keep)
	}
	if err != nil {
		die("prune: %v", err)
		return err
	}

	fmt.Printf("removed %d versions, keeping %d per file\n", removed, keep)
	return nil
}
