package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/thuhak/pbs-cache/pkg/directory"
	"github.com/thuhak/pbs-cache/pkg/server"
	"github.com/thuhak/pbs-cache/pkg/store"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP query API over the published documents",
		Description: `Serves the query API backed by the primary store: site documents,
per-subject listings, record details, account lookups and the
application registry. The server refuses documents older than the
freshness threshold.`,
		Flags: []cli.Flag{
			configFlag(),
			logLevelFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			if len(cfg.Stores) == 0 {
				return fmt.Errorf("no stores configured")
			}

			primary := store.NewRedisStore(cfg.Stores[0])
			defer primary.Close()

			dir := directory.New(cfg.Directory)

			s := server.NewServer(server.FromAppConfig(cfg, version), primary, dir)
			return s.Start(ctx)
		},
	}
}
