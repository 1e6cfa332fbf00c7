package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go-accessory-hub/internal/infrastructure/accessory"
	"go-accessory-hub/internal/infrastructure/config"
	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
	"go-accessory-hub/internal/infrastructure/metrics"
	"go-accessory-hub/internal/infrastructure/server"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "accessory-hub",
	Short:   "Connection registry and event fanout for accessory sockets",
	Version: version,
	RunE:    runHub,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.Flags().StringP("config", "c", "", "Path to the YAML config file")
	rootCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error), overrides the config file")
}

func runHub(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return err
	}
	if raw, _ := cmd.Flags().GetString("log-level"); raw != "" {
		level, err := logger.ParseLevel(raw)
		if err != nil {
			return err
		}
		cfg.Log.Level = level
	}

	log := logger.NewLogrusLogger(&cfg.Log)
	m := metrics.New()
	hubInstance := hub.New(log, hub.WithConfig(cfg.Hub), hub.WithMetrics(m))
	provider := accessory.NewProvider(hubInstance, log)

	// The framework has to come up before the hub accepts anything
	sdk := accessory.LocalSDK{Channels: cfg.Accessory.Channels, ChannelID: cfg.Hub.ChannelID}
	if err := provider.Init(sdk); err != nil {
		return err
	}

	ctx := context.Background()
	sctx := WithSignal(ctx)

	if err := hubInstance.Start(sctx); err != nil {
		return fmt.Errorf("start hub: %w", err)
	}

	gin.SetMode(cfg.Server.GinMode)
	router := InitRouter(RouterDeps{
		Hub:       hubInstance,
		Provider:  provider,
		Metrics:   m,
		Accessory: cfg.Accessory,
		ChannelID: cfg.Hub.ChannelID,
		Logger:    log,
	})
	httpSrv := server.NewHTTPServer(server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router, log)

	app := newApplication(log, httpSrv, hubInstance, cfg.Server.ShutdownTimeout)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
		return err
	}
	return nil
}

type Application struct {
	logger          logger.Logger
	httpSrv         server.Server
	hub             *hub.Hub
	shutdownTimeout time.Duration
}

func newApplication(
	logger logger.Logger,
	httpSrv server.Server,
	hubInstance *hub.Hub,
	shutdownTimeout time.Duration,
) *Application {
	return &Application{
		logger:          logger.WithField("app", "accessory-hub"),
		httpSrv:         httpSrv,
		hub:             hubInstance,
		shutdownTimeout: shutdownTimeout,
	}
}

func (app *Application) Run(ctx context.Context) error {
	eg := errgroup.Group{}

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()

		gracefulshutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
		defer cancel()

		// Stop hub first so accessory sockets are closed before the listener
		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
