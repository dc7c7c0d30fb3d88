package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pajakoo/shoppApp/config"
	"github.com/pajakoo/shoppApp/internal/app"
	"github.com/pajakoo/shoppApp/internal/platform"
	"github.com/pajakoo/shoppApp/internal/screen"
	"github.com/pajakoo/shoppApp/internal/webapi"
)

var (
	configFile = flag.String("c", "", "config file path (yaml)")
	showConfig = flag.Bool("p", false, "print effective config and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *showConfig {
		fmt.Printf("%+v\n", *cfg)
		return
	}

	application := app.NewApplication(cfg)
	if err := application.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer application.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scr, err := screen.NewScreen(application, platform.NewDevEnumerator(), &platform.LineDriver{}, platform.EnvLocator{})
	if err != nil {
		zap.S().Fatalf("screen init failed: %v", err)
	}
	scr.Mount(ctx)

	application.RegisterRefreshJob(func() {
		refreshCtx, done := context.WithTimeout(ctx, cfg.Catalog.Timeout.Duration())
		defer done()
		if err := scr.Controller().Refresh(refreshCtx); err != nil {
			zap.S().Warnf("background catalog refresh failed: %v", err)
		}
	})
	application.StartBackgroundJobs()

	server := webapi.NewServer(application, scr)
	go func() {
		if err := server.Start(cfg.Web.Listen); err != nil && err != http.ErrServerClosed {
			zap.S().Errorf("operator api stopped: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = server.Shutdown(shutdownCtx)
	scr.Unmount()
	cancel()
}
