package command

import (
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

type Ls struct {
	All bool `short:"a" name:"all" help:"Include deleted files that still have versions"`
}

func (c *Ls) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	fsys, _, closer, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer closer()

	keys, err := fsys.ListLogicalFiles(ctx)
	if err != nil {
		die("list files: %v", err)
		return err
	}
	live := make(map[string]bool, len(keys))
	for _, key := range keys {
		live[key] = true
	}

	if c.All {
		history, err := fsys.ListHistory(ctx)
		if err != nil {
			die("list history: %v", err)
			return err
		}
		for _, key := range history {
			if !live[key] {
				keys = append(keys, key)
			}
		}
		slices.Sort(keys)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, key := range keys {
		versions, err := fsys.ListVersions(ctx, key)
		if err != nil {
			die("list versions of '%s': %v", key, err)
			return err
		}

		size := "-"
		if live[key] {
			if stat, err := fsys.Stat(ctx, key); err == nil {
				size = humanize.IBytes(uint64(stat.Size))
			}
		} else {
			size = "deleted"
		}

		latest := "-"
		if len(versions) > 0 {
			latest = humanize.Time(versions[0].CreatedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%d versions\t%s\n", key, size, len(versions), latest)
	}

	return nil
}
