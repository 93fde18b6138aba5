package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/mwantia/histfs/cmd/histfs/command"
)

// version is replaced at build time with -ldflags "-X main.version=..."
var version = "dev"

type App struct {
	command.Globals
	Browse   command.Browse   `cmd:"browse" default:"1" help:"Browse files and their versions interactively"`
	Mount    command.Mount    `cmd:"mount" help:"Mount the data directory with versioning through FUSE"`
	Ls       command.Ls       `cmd:"ls" help:"List logical files and their version counts"`
	Versions command.Versions `cmd:"versions" help:"List the versions of a file, newest first"`
	Cat      command.Cat      `cmd:"cat" help:"Write the content of a version to stdout"`
	Snapshot command.Snapshot `cmd:"snapshot" help:"Archive the current content of files"`
	Restore  command.Restore  `cmd:"restore" help:"Replace a file with one of its versions"`
	Prune    command.Prune    `cmd:"prune" help:"Remove old versions beyond the retention count"`
	Config   command.Config   `cmd:"config" help:"Print the effective configuration"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("histfs"),
		kong.Description("histfs - versioning filesystem"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	if err := ctx.Run(&app.Globals); err != nil {
		os.Exit(1)
	}
}
