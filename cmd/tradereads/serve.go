package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tradereads/tradereads-api/internal/api"
	apiMiddleware "github.com/tradereads/tradereads-api/internal/api/middleware"
	"github.com/tradereads/tradereads-api/internal/task"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.cleanup()
			return app.serve(ctx)
		},
	}
}

// runtime holds the background components started alongside the server.
type runtime struct {
	hub        *api.StreamHub
	dispatcher *task.Dispatcher
	scheduler  *task.Scheduler
	limiter    *apiMiddleware.RateLimiter
}

func (app *application) startRuntime() (*runtime, error) {
	rt := &runtime{
		hub:     api.NewStreamHub(app.logger),
		limiter: apiMiddleware.NewRateLimiter(app.config.Limiter),
	}

	// Stream delivery runs off the request path.
	rt.dispatcher = task.NewDispatcher(rt.hub, task.DefaultDispatcherConfig(), app.logger)
	app.emitter.RegisterHandler(rt.dispatcher)

	rt.scheduler = task.NewScheduler(task.SchedulerConfig{RunOnStart: true, JobTimeout: time.Minute}, app.logger)
	sweep := task.NewSessionSweepJob(app.sessions, nil)
	if err := rt.scheduler.Every(app.config.Sessions.SweepInterval(), sweep); err != nil {
		rt.limiter.Stop()
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	rt.dispatcher.Start()
	rt.scheduler.Start()
	return rt, nil
}

func (rt *runtime) stop() {
	rt.scheduler.Stop()
	rt.hub.Close()
	rt.dispatcher.Stop()
	rt.limiter.Stop()
}

func (app *application) router(rt *runtime) http.Handler {
	return api.NewRouter(api.RouterDeps{
		Logger:   app.logger,
		Users:    app.users,
		JWT:      app.jwt,
		Sessions: app.sessions,
		Books:    app.books,
		Trades:   app.trades,
		Stream:   rt.hub,
		Limiter:  rt.limiter,
		Ping:     app.stores.ping,
	})
}

// serve runs the HTTP server until ctx is cancelled, then shuts down gracefully.
func (app *application) serve(ctx context.Context) error {
	rt, err := app.startRuntime()
	if err != nil {
		return err
	}
	defer rt.stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.router(rt),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	}

	timeout := time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown.
	rt.hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	app.logger.Info("server shutdown completed")
	return nil
}
