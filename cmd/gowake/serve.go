package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fgeck/gowake/internal/api"
	"github.com/fgeck/gowake/internal/services/probe"
	"github.com/fgeck/gowake/internal/services/wol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the JSON API:
  GET  /api/wake?mac=&host=&cidr=&port=
  POST /api/hosts/{name}/wake
  GET  /api/status?host=&port=
  GET  /api/hosts`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config, else :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	listen := serveListen
	if listen == "" {
		listen = cfg.Server.Listen
	}

	handler := api.NewHandler(log.Logger, *cfg, wol.New(log.Logger), probe.New(log.Logger))
	server := api.NewServer(listen, handler.Routes())

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listen).
		Int("hosts", len(cfg.Hosts)).
		Bool("auth", cfg.Server.Token != "").
		Msg("starting gowake API")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
		return err
	}

	<-stopped
	log.Info().Msg("server stopped")
	return nil
}
