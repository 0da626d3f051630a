package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/anime-shed/bookcapture-go/internal/commands"
	"github.com/anime-shed/bookcapture-go/internal/transport"
)

func main() {
	root := commands.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(transport.Version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
