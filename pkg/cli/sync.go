package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/thuhak/pbs-cache/pkg/config"
	"github.com/thuhak/pbs-cache/pkg/pbs"
	"github.com/thuhak/pbs-cache/pkg/sampler"
	"github.com/thuhak/pbs-cache/pkg/store"
)

func syncCmd() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sample the local scheduler and publish the site document",
		Description: `Runs the sampling loop: query the scheduler's server, queue, node
and job state, aggregate it into the site document, and publish it to
every configured store. With --once a single pass runs and the command
exits, which suits cron or systemd timer driven deployments.`,
		Flags: []cli.Flag{
			configFlag(),
			logLevelFlag(),
			&cli.BoolFlag{
				Name:  "once",
				Usage: "run a single sampling pass and exit",
			},
			&cli.StringFlag{
				Name:  "mirror-dir",
				Usage: "also write published documents into this directory",
			},
			&cli.StringFlag{
				Name:  "mirror-format",
				Usage: fmt.Sprintf("mirror file format, one of %v", store.SupportedFormats()),
				Value: string(store.FormatJSON),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			publisher, err := buildPublisher(cfg, cmd.String("mirror-dir"), cmd.String("mirror-format"))
			if err != nil {
				return err
			}
			defer publisher.Close()

			s := &sampler.Sampler{
				Location:  cfg.Location,
				Fetcher:   pbs.NewClient(cfg.PBSBinDir),
				Publisher: publisher,
				Interval:  cfg.Interval,
			}

			if cmd.Bool("once") {
				return s.RunOnce(ctx)
			}
			err = s.Run(ctx)
			if ctx.Err() != nil {
				// Signal driven shutdown is not a failure.
				return nil
			}
			return err
		},
	}
}

// buildPublisher wires the configured stores, primary first, with an
// optional file mirror at the end of the chain.
func buildPublisher(cfg *config.Config, mirrorDir, mirrorFormat string) (*store.Publisher, error) {
	if len(cfg.Stores) == 0 {
		return nil, fmt.Errorf("no stores configured")
	}
	dests := make([]store.Destination, 0, len(cfg.Stores)+1)
	for _, sc := range cfg.Stores {
		dests = append(dests, store.NewRedisStore(sc))
	}
	if mirrorDir != "" {
		dests = append(dests, store.NewFileStore(mirrorDir, store.Format(mirrorFormat)))
	}
	return store.NewPublisher(dests...), nil
}
