package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrejche/coinfly-v2/internal/config"
	"github.com/andrejche/coinfly-v2/internal/refresh"
	"github.com/andrejche/coinfly-v2/internal/server"
	"github.com/andrejche/coinfly-v2/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "coinfly",
	Short: "Crypto price and news aggregator",
	Long: `coinfly aggregates CoinGecko prices and crypto news into stable JSON
payloads, caches news images under content-addressed keys, and serves the
results over HTTP. Feeds refresh on a fixed interval.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coinfly %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	pipeline := buildPipeline(cfg, st, logger)
	sched, err := refresh.NewScheduler(pipeline, cfg.RefreshDuration(), logger)
	if err != nil {
		return fmt.Errorf("initializing scheduler: %w", err)
	}

	srvCfg := server.Config{
		Addr:         cfg.ListenAddr,
		AllowedHosts: cfg.Images.AllowedHosts,
		ProxyTimeout: cfg.ImageFetchTimeout(),
	}
	if local, ok := st.(*store.Local); ok {
		srvCfg.StaticDir = local.AssetDir()
		srvCfg.PublicPrefix = local.PublicPrefix()
	}
	srv := server.New(srvCfg, st, logger)

	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Warn("scheduler shutdown", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flagLogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
