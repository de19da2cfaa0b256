// Command deploy uploads a built page to the node deployment endpoint after
// a short delay.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/envpanel/internal/deploy"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		slog.Error("deploy failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Missing file is fine; values may come from the real environment.
	_ = godotenv.Load(extractEnvFile(args))

	opts := &options{}
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploader := deploy.NewUploader(nil, os.Stdout, slog.Default())
	if err := uploader.Upload(ctx, opts.settings()); err != nil {
		return err
	}

	slog.Info("deploy complete")
	return nil
}
