// Package server exposes the replay engine over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/sightline/internal/models"
	"github.com/zulandar/sightline/internal/replay"
	"github.com/zulandar/sightline/internal/store"
)

// Replayer runs a replay of a logged request.
type Replayer interface {
	Replay(ctx context.Context, req replay.Request) (*replay.Result, error)
}

// RequestReader reads logged request records scoped to an environment.
type RequestReader interface {
	Get(ctx context.Context, id uint, environmentID string) (*models.RequestRecord, error)
	List(ctx context.Context, filters store.ListFilters) ([]models.RequestRecord, error)
	ListReplays(ctx context.Context, originalID uint, environmentID string) ([]models.RequestRecord, error)
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Replayer Replayer
	Requests RequestReader
	Port     int
	Out      io.Writer
}

// NewRouter builds the gin engine with middleware and routes registered.
func NewRouter(replayer Replayer, requests RequestReader) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), loggingMiddleware())
	registerRoutes(router, replayer, requests)
	return router
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Replayer == nil {
		return fmt.Errorf("server: replayer is required")
	}
	if opts.Requests == nil {
		return fmt.Errorf("server: request reader is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts.Replayer, opts.Requests),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Sightline API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
