package command

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

type Versions struct {
	Path string `arg:"" name:"path" help:"File path relative to the data directory"`
	JSON bool   `short:"j" name:"json" help:"Print the ledger entries as JSON"`
}

func (c *Versions) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	fsys, _, closer, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer closer()

	versions, err := fsys.ListVersions(ctx, c.Path)
	if err != nil {
		die("list versions of '%s': %v", c.Path, err)
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(versions)
	}

	if len(versions) == 0 {
		fmt.Fprintf(os.Stderr, "no versions recorded for '%s'\n", c.Path)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, v := range versions {
		fmt.Fprintf(w, "v%d\t%s\t%s\t%s\n",
			v.Number,
			v.CreatedAt.Format("2006-01-02 15:04:05"),
			humanize.IBytes(uint64(v.Size)),
			humanize.Time(v.CreatedAt))
	}
	return nil
}
