package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"go.bug.st/serial"

	"github.com/hfe-lab/rigctl/pkg/config"
	"github.com/hfe-lab/rigctl/pkg/supervisor"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		portFlag   = flag.String("p", "", "Rig console serial port override")
		listenFlag = flag.String("listen", "", "HTTP listen address override (e.g., :8000)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Console.Port = *portFlag
	}
	if *listenFlag != "" {
		cfg.Supervisor.Listen = *listenFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := supervisor.NewHub()
	logger := supervisor.NewLogger(cfg.Supervisor.RawLogDir)

	// The rig console is optional: without it the API still serves clients,
	// command posts just fail with 503.
	var rig supervisor.CommandSink
	var console serial.Port
	if cfg.Console.Port != "" {
		console, err = serial.Open(cfg.Console.Port, &serial.Mode{BaudRate: cfg.Console.BaudRate})
		if err != nil {
			log.Printf("rigsup: console unavailable: %v. Starting API without the rig.", err)
		} else {
			defer console.Close()
			rig = supervisor.WriterSink{W: console}
			log.Printf("rigsup: console connected: %s @ %d", cfg.Console.Port, cfg.Console.BaudRate)
		}
	}

	srv := supervisor.NewServer(cfg.Supervisor.AuthToken, hub, logger, rig)

	if console != nil {
		go func() {
			if err := srv.Feed(ctx, console); err != nil && ctx.Err() == nil {
				log.Printf("rigsup: console feed stopped: %v", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:    cfg.Supervisor.Listen,
		Handler: handlers.LoggingHandler(os.Stdout, srv.Routes()),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, ok := logger.Stop(); ok {
			log.Printf("rigsup: closed raw log")
		}
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("rigsup: shutdown: %v", err)
		}
	}()

	log.Printf("rigsup: listening on %s (auth %v)", cfg.Supervisor.Listen, cfg.Supervisor.AuthToken != "")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("rigsup: %v", err)
	}
}
