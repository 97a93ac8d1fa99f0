package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/kagikachi/internal/logging"
)

var (
	configFile string
	addrFlag   string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kagikachi",
	Short: "In-memory document store served over WebSocket",
	Long: `Kagikachi keeps a tree of JSON-like documents in memory and serves
SET, GET, DEL, DUMP, LOAD and PING commands over WebSocket.

Use 'kagikachi serve' to run the server and 'kagikachi client' to open an
interactive session against one.`,
	SilenceUsage: true,
}

func main() {
	if _, err := logging.Init(logging.DefaultConfig().WithEnv(), "kagikachi"); err != nil {
		log.Warn().Err(err).Msg("invalid log environment, using defaults")
		logging.Init(logging.DefaultConfig(), "kagikachi")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "Server address (default 0.0.0.0:7878 for serve, 127.0.0.1:7878 for client)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
