package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ecovision/mantaview/internal/app"
	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/httpcontroller"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/telemetry"
)

// Command creates the command that runs the web dashboard.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Long:  "Serve the encounter dashboard and its JSON API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("port", viper.GetString("webserver.port"), "Port the web server listens on")
	cmd.Flags().String("dataset", viper.GetString("dataset.path"), "Path to the encounter CSV store")

	if err := viper.BindPFlag("webserver.port", cmd.Flags().Lookup("port")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("dataset.path", cmd.Flags().Lookup("dataset")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, settings *conf.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Global().Module("main")

	services, err := app.New(ctx, settings, app.WithSessions(), app.WithTides(), app.WithExportSink())
	if err != nil {
		return err
	}
	defer services.Close()

	opts := []httpcontroller.Option{httpcontroller.WithExportSink(services.Sink)}
	if services.Tides != nil {
		opts = append(opts, httpcontroller.WithTides(services.Tides))
	}
	if services.Audit != nil {
		opts = append(opts, httpcontroller.WithAudit(services.Audit))
	}
	if services.Metrics != nil {
		opts = append(opts, httpcontroller.WithMetrics(services.Metrics))
	}

	server, err := httpcontroller.New(settings, services.Sessions, services.Gateway, opts...)
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", logger.Error(err))
		}
		return err
	case sig := <-quit:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server did not shut down cleanly", logger.Error(err))
	}
	telemetry.Flush(2 * time.Second)

	if err := logger.Global().Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
	return nil
}
