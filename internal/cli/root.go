// Package cli is the headless interview participant.
package cli

import (
	"os"
	"strings"

	"github.com/dkeye/Interview/internal/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "participant",
	Short: "Join an interview room from the terminal",
	Long: `participant joins an interview room through the relay, negotiates a
WebRTC call with the other side using synthetic media and keeps the shared
code buffer and judge verdict in sync.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if env, _ := cmd.Flags().GetString("env"); env != "" {
			_ = os.Setenv("CONFIG_ENV", env)
		}
		level, _ := cmd.Flags().GetString("log-level")
		setupLogging(level)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "config environment, reads config/config.<env>.yaml")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("server", "", "relay base url, e.g. http://localhost:8080")
	rootCmd.PersistentFlags().Duration("http-timeout", 0, "timeout for discovery, catalog and judge calls")
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Execute runs the root command. It is called once by main.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
