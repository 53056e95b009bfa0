package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/danhigham/otpfeed/internal/config"
	"github.com/danhigham/otpfeed/internal/httpapi"
	"github.com/danhigham/otpfeed/internal/panel"
	"github.com/danhigham/otpfeed/internal/poller"
	"github.com/danhigham/otpfeed/internal/state"
	"github.com/danhigham/otpfeed/internal/ui"
)

func main() {
	cfgDir := config.Dir()
	cfgPath := flag.String("config", filepath.Join(cfgDir, "config.yaml"), "path to config file")
	headless := flag.Bool("headless", false, "serve the HTTP API without the terminal dashboard")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config from %s: %v\n", *cfgPath, err)
		fmt.Fprintf(os.Stderr, "\nCreate the config file with:\n")
		fmt.Fprintf(os.Stderr, "  mkdir -p %s\n", filepath.Dir(*cfgPath))
		fmt.Fprintf(os.Stderr, "  cat > %s << 'EOF'\n", *cfgPath)
		fmt.Fprintf(os.Stderr, "panel:\n  url: \"https://panel.example.com\"\n  username: \"YOUR_USER\"\n  password: \"YOUR_PASSWORD\"\nEOF\n")
		fmt.Fprintf(os.Stderr, "\nThe password can also be set with %s.\n", config.PasswordEnv)
		os.Exit(1)
	}

	// Setup logging to file
	if err := os.MkdirAll(cfgDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", cfgDir, err)
		os.Exit(1)
	}
	logger, err := newLogger(filepath.Join(cfgDir, "otpfeed.log"), cfg.LogLevel, *headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create store (drawFunc is set once the dashboard exists)
	store := state.New(nil,
		state.WithMaxMessages(cfg.Poll.MaxMessages),
		state.WithLogger(logger.Named("feed")),
	)

	client := panel.NewHTTPClient(panel.Options{
		BaseURL:  cfg.Panel.URL,
		Username: cfg.Panel.Username,
		Password: cfg.Panel.Password,
		Timeout:  cfg.Panel.Timeout.Std(),
		Limit:    cfg.Panel.Limit,
		Handler:  store,
		Logger:   logger.Named("panel"),
	})

	p := poller.New(client, store, poller.Options{
		Interval: cfg.Poll.Interval.Std(),
		Backoff:  cfg.Poll.Backoff.Std(),
		Logger:   logger.Named("poller"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           httpapi.New(p, logger.Named("http")).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	go p.Run(ctx)

	if *headless {
		<-ctx.Done()
	} else {
		app := ui.NewApp(p)
		store.SetDrawFunc(app.DrawFunc())
		go func() {
			<-ctx.Done()
			app.Quit()
		}()
		if err := app.Run(); err != nil {
			logger.Error("dashboard exited", zap.Error(err))
		}
		stop()
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

// newLogger writes development-format logs to path, and to stderr as well
// when no dashboard owns the terminal.
func newLogger(path, level string, toStderr bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = lvl
	logCfg.OutputPaths = []string{path}
	logCfg.ErrorOutputPaths = []string{path}
	if toStderr {
		logCfg.OutputPaths = append(logCfg.OutputPaths, "stderr")
		logCfg.ErrorOutputPaths = append(logCfg.ErrorOutputPaths, "stderr")
	}
	return logCfg.Build()
}
