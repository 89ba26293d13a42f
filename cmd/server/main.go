package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flisboa999/guiaturismo/internal/config"
)

var logLevel = ""

var rootCmd = &cobra.Command{
	Use:   "guiaturismo",
	Short: "Shared chat log with optional generated replies",
	Long: `Runs the shared chat service: a callable endpoint that stores each prompt
(optionally with a generated reply) and a live view that streams every change
to connected clients.`,
	SilenceUsage: true,
}

func main() {
	// Add some millisecond precision to log timestamps.
	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = "2006-01-02T15:04:05.999Z07:00"
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)

	rootCmd.AddCommand(
		NewServeCommand(),
		NewResetCommand(),
	)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (trace,debug,info,warn,error), overrides log.level from the config file")

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("could not execute root command")
	}
}

// loadConfig reads the config and applies its logging section; --log-level wins.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cfg.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.999Z07:00"})
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(parsed)
	log.Debug("debug logging enabled")
	return cfg, nil
}
