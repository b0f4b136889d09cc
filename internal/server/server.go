package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/akolanti/DocVault/internal/adapter/utils"
	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/handlers"
	"github.com/akolanti/DocVault/internal/middleware"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
	Timeout          time.Duration
}

type Routes struct {
	Handler *handlers.Handler
	Chain   *middleware.Chain
	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// RegisterRoutes mounts the API. Everything but /healthz, /metrics and
// swagger goes through the middleware chain.
func RegisterRoutes(r chi.Router, routes Routes) {
	h, wrap := routes.Handler, routes.Chain.Wrap

	r.Get("/healthz", handlers.GetHandler)

	r.Post("/documents", wrap(h.PostDocumentsHandler))
	r.Get("/documents", wrap(h.ListDocumentsHandler))
	r.Delete("/documents/{name}", wrap(h.DeleteDocumentHandler))

	r.Post("/query", wrap(h.QueryHandler))
	r.Post("/jobs/query", wrap(h.PostQueryJobHandler))
	r.Post("/jobs/ingest", wrap(h.PostIngestJobHandler))
	r.Get("/status/{id}", wrap(h.GetStatusHandler))

	r.Post("/admin/reindex", wrap(h.ReindexHandler))
	r.Get("/admin/reconcile", wrap(h.ReconcileHandler))

	if routes.MCP != nil {
		r.Handle("/mcp", routes.Chain.Handler(routes.MCP))
	}
}

func CreateServer(cfg config.ServerConfig, routes Routes) {
	r := utils.GetRouter()
	RegisterRoutes(r.Router, routes)

	server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r.Router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", cfg.ListenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	timeout := shutdownParams.Timeout
	if timeout <= 0 {
		timeout = config.ShutdownContextTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "err", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
