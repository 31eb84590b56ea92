package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/thuhak/pbs-cache/pkg/apps"
)

func appsCmd() *cli.Command {
	return &cli.Command{
		Name:  "apps",
		Usage: "Publish the application registry",
		Description: `Loads every application descriptor from the configured drop-in
directory and publishes the combined registry document. Use --dry-run
to inspect the registry without touching the stores.`,
		Flags: []cli.Flag{
			configFlag(),
			logLevelFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the registry instead of publishing it",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			registry, err := apps.LoadDir(cfg.AppDir)
			if err != nil {
				return err
			}
			slog.Info("application registry loaded", "dir", cfg.AppDir, "apps", len(registry))

			if cmd.Bool("dry-run") {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(registry)
			}

			publisher, err := buildPublisher(cfg, "", "")
			if err != nil {
				return fmt.Errorf("wiring stores: %w", err)
			}
			defer publisher.Close()

			return apps.Publish(ctx, publisher, registry)
		},
	}
}
