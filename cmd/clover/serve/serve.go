package servecmder

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/megaman333/Clover-Edition/cmd/clover/setup"
	"github.com/megaman333/Clover-Edition/pkg/logger"
	"github.com/megaman333/Clover-Edition/server"
)

const serveLongDesc string = `Serve the story engine over HTTP.

Exposes story start, turns (with optional token streaming), action
suggestions, and story persistence on a JSON API backed by the
configured inference service.

Examples:
  clover serve
  clover serve --listen :6061 --db ~/.clover/stories.db`

const serveShortDesc string = "Serve the story engine over HTTP"

type serveCommander struct {
	configPath string
	listenAddr string
	dbPath     string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "config.toml", "Path to the settings file")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", ":6061", "Address to listen on")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to the story database (default: in-memory)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	settings, err := setup.LoadSettings(c.configPath, log)
	if err != nil {
		return err
	}

	engine, err := setup.NewEngine(ctx, settings, log)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{ListenAddr: c.listenAddr, DBPath: c.dbPath}, engine, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	// Settings edits apply between turns without a restart.
	go setup.WatchSettings(ctx, c.configPath, engine, log)

	return srv.Run()
}
