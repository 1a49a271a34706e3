package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clusterfit/vikhlinin/internal/server"
	"github.com/clusterfit/vikhlinin/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP fit service",
	Long: `Starts the HTTP service that accepts fit jobs, stores results and
exposes Prometheus metrics.

Configuration is resolved from flags, VIKHFIT_* environment variables
and an optional vikhfit.yaml file, in that order of precedence.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("data-dir", "./data", "Base directory for stored results")

	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("data-dir", serveCmd.Flags().Lookup("data-dir"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	viper.SetConfigName("vikhfit")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.vikhfit")
	viper.SetEnvPrefix("VIKHFIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	addr := viper.GetString("addr")
	dataDir := viper.GetString("data-dir")

	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	srv := server.NewServer(addr, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
