package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bornholm/burpacl/internal/config"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "burpacl",
	Short: "Burp-UI ACL grants resolution service",
	Long: `burpacl resolves Burp-UI access control grants (admins, moderators,
groups and per-user client/agent grants) from one or more backends and exposes
them through an authenticated HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dumpConfigCmd)
}

// loadConfig reads the configuration file, if any, interpolates it and
// installs the default logger.
func loadConfig() (*config.Config, error) {
	conf := config.NewDefaultConfig()

	if configFile != "" {
		if err := config.LoadFile(configFile, conf); err != nil {
			return nil, errors.Wrapf(err, "could not parse config file '%s'", configFile)
		}
	}

	if err := config.Interpolate(conf); err != nil {
		return nil, errors.Wrap(err, "could not interpolate config")
	}

	handlerOptions := &slog.HandlerOptions{
		Level:     slog.Level(conf.Logger.Level),
		AddSource: true,
	}

	var handler slog.Handler
	switch string(conf.Logger.Format) {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, handlerOptions)
	case config.LogFormatText, "":
		handler = slog.NewTextHandler(os.Stderr, handlerOptions)
	default:
		return nil, errors.Errorf("unknown log format '%s'", conf.Logger.Format)
	}

	logger := slog.New(log.ContextHandler{Handler: handler})

	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(slog.Level(conf.Logger.Level))

	return conf, nil
}
