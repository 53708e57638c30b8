// Command coordinator runs the Saga Orchestration Core's operator
// HTTP API (spec.md §6), grounded on the teacher's
// services/order-service/cmd/main.go startup sequence: load config,
// build the dependency graph, serve, shut down on signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the coordinator's YAML config file")
	flag.Parse()

	app, err := InitializeApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coordinator: startup failed: %v\n", err)
		os.Exit(1)
	}
	defer app.HealthCache.Close()

	if app.Config.Server.PprofPort != 0 {
		go func() {
			addr := fmt.Sprintf(":%d", app.Config.Server.PprofPort)
			app.Log.Info("pprof listening", "addr", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				app.Log.Error("pprof server stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.Config.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  time.Duration(app.Config.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(app.Config.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		app.Log.Info("coordinator listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	app.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		app.Log.Error("graceful shutdown failed", "error", err)
	}
}
