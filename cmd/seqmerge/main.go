package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/chojs23/seqmerge/internal/cli"
	"github.com/chojs23/seqmerge/internal/run"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	cmd := cli.NewRootCommand(cli.Options{
		Version:     versionString(),
		Interactive: run.IsTerminal(os.Stdin) && run.IsTerminal(os.Stdout),
	})
	code := cli.Execute(ctx, cmd)
	stop()
	os.Exit(code)
}

func versionString() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return version
	}
	return info.Main.Version
}
