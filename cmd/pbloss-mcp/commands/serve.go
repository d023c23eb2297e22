package commands

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pbloss-mcp/internal/mcp"
	"pbloss-mcp/internal/store"
)

var serveNoStore bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, imports, err := loadSettings()
		if err != nil {
			return err
		}

		server := mcp.NewServer(cfg, settings, imports, Version)
		if !serveNoStore {
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				log.Warn().Err(err).Str("path", cfg.DBPath).Msg("Result store unavailable; estimates will not be persisted")
			} else {
				defer db.Close()
				server.WithStore(db)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "do not persist estimates")
}
