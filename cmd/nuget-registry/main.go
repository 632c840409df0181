// Command nuget-registry serves a NuGet v3 package repository backed by a
// blob store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/soloworks/go-nuget-registry/internal/config"
	"github.com/soloworks/go-nuget-registry/internal/nuget"
	"github.com/soloworks/go-nuget-registry/internal/server"
	"github.com/soloworks/go-nuget-registry/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nuget-registry",
		Short:         "NuGet v3 package repository server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the repository server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfgFile)
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file")
	return cmd
}

func serve(ctx context.Context, cfgFile string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "nuget-registry",
	})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if len(cfg.APIKeys.ReadOnly) == 0 && len(cfg.APIKeys.ReadWrite) == 0 {
		logger.Warn("no API keys defined, server running in free access mode")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	handler := server.New(cfg, nuget.NewRepository(store), logger)

	srv := &http.Server{Addr: cfg.Listen, Handler: handler}
	errc := make(chan error, 1)
	go func() {
		logger.Info("serving", "listen", cfg.Listen, "host-url", cfg.HostURL, "filestore", cfg.FileStore.Type)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.FileStore.Type {
	case config.StoreMemory:
		return storage.NewMemory(), nil
	case config.StoreLocal:
		return storage.NewLocal(cfg.FileStore.LocalDirectory)
	case config.StoreGCP:
		return storage.NewGCS(ctx, cfg.FileStore.StorageBucket)
	}
	return nil, fmt.Errorf("unknown filestore type %q", cfg.FileStore.Type)
}
