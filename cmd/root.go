package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ecovision/mantaview/cmd/config"
	"github.com/ecovision/mantaview/cmd/export"
	"github.com/ecovision/mantaview/cmd/ingest"
	"github.com/ecovision/mantaview/cmd/serve"
	"github.com/ecovision/mantaview/cmd/tides"
	"github.com/ecovision/mantaview/internal/buildinfo"
	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/telemetry"
)

// RootCommand creates and returns the root command. Subcommands share
// settings, which are filled in before any of them runs.
func RootCommand(info *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "mantaview",
		Short:         "Manta ray encounter dashboard",
		Version:       info.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(info.String() + "\n")

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search the standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		export.Command(settings),
		ingest.Command(settings),
		tides.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings, info, configFile)
	}

	return rootCmd
}

// initialize loads configuration, then sets up logging and telemetry in
// that order so both see the final settings.
func initialize(settings *conf.Settings, info *buildinfo.Context, configFile string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}

	loaded, err := conf.Load()
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	centralLogger, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(centralLogger)

	if err := telemetry.InitSentry(settings, info); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger.Global().Module("main").Info("starting",
		logger.String("version", info.GetVersion()),
		logger.String("build_date", info.GetBuildDate()))
	return nil
}
