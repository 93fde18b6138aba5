package command

import "fmt"

type Snapshot struct {
	Paths []string `arg:"" name:"path" help:"Files to archive"`
}

func (c *Snapshot) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	fsys, _, closer, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer closer()

	var failed error
	for _, p := range c.Paths {
		v, err := fsys.CreateVersion(ctx, p)
		switch {
		case err != nil:
			die("snapshot '%s': %v", p, err)
			failed = err
		case v == nil:
			fmt.Printf("%s: skipped, absent or empty\n", p)
		default:
			fmt.Printf("%s: created v%d\n", p, v.Number)
		}
	}
	return failed
}
