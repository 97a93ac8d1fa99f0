package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/kagikachi"
	"github.com/luciancaetano/kagikachi/internal/config"
	"github.com/luciancaetano/kagikachi/internal/logging"
	"github.com/luciancaetano/kagikachi/ws"
)

const shutdownTimeout = 5 * time.Second

// serveCmd runs the document store server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document store server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		if _, err := logging.Init(cfg.Log, "kagikachi"); err != nil {
			return err
		}
		if configFile != "" {
			log.Info().Str("path", configFile).Msg("loaded config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := ws.New(serverConfig(cfg))
		if err := server.Start(ctx); err != nil {
			log.Error().Err(err).Str("addr", cfg.Addr).Msg("failed to start server")
			return err
		}
		log.Info().
			Str("addr", server.Addr().String()).
			Bool("mask_responses", cfg.MaskResponses).
			Bool("rate_limit", cfg.RateLimit.Enabled).
			Msg("kagikachi started")

		<-ctx.Done()
		log.Info().Msg("shutting down")

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Stop(stopCtx)
	},
}

// resolveConfig loads the config file, if any, then applies flag and
// environment overrides.
func resolveConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	cfg.Log = cfg.Log.WithEnv()

	if addrFlag != "" {
		cfg.Addr = addrFlag
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func serverConfig(cfg config.Config) ws.ServerConfig {
	sc := cfg.ServerConfig()
	sc.OnConnect = func(c kagikachi.Client) {
		log.Info().Str("conn_id", c.ID()).Str("remote_addr", c.RemoteAddr()).Msg("client connected")
	}
	sc.OnClientDisconnect = func(c kagikachi.Client, voluntary bool) {
		log.Info().Str("conn_id", c.ID()).Bool("voluntary", voluntary).Msg("client disconnected")
	}
	return sc
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&configFile, "config", "", "Configuration file (TOML)")
}
