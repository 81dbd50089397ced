package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/distantorigin/h5-companion/internal/console"
)

func main() {
	console.Attach()
	_ = console.SetTitle("Heroes V Companion")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
