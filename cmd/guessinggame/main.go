package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the guessing game server"`
	Play     PlayCmd          `cmd:"" help:"Play against a server, interactively or with a strategy"`
	Simulate SimulateCmd      `cmd:"" help:"Play many games with a strategy and report the outcomes"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("guessinggame"),
		kong.Description("Guess the hidden number between 1 and 10 in three tries"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
