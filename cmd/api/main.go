// @title           DocVault API
// @version         1.0
// @description     Departmental document library with permission-aware question answering.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email   ank.github@gmail.com

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

//run redis
//docker run -p 6379:6379 -d redis

//run qdrant
//docker run -p 6333:6333 -p 6334:6334 -v vectorDBData:/qdrant/storage qdrant/qdrant

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/DocVault/internal/app"
	"github.com/akolanti/DocVault/internal/config"
	jobmodel "github.com/akolanti/DocVault/internal/domain/jobModel"
	"github.com/akolanti/DocVault/internal/handlers"
	"github.com/akolanti/DocVault/internal/job"
	"github.com/akolanti/DocVault/internal/mcpServer"
	"github.com/akolanti/DocVault/internal/middleware"
	"github.com/akolanti/DocVault/internal/rag"
	"github.com/akolanti/DocVault/internal/server"
	"github.com/akolanti/DocVault/internal/worker"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

var (
	listenAddr        string
	configPath        string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger_i.NewLogger("main").Error("Invalid configuration", "err", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	logger_i.Init(cfg.SlogLevel(), cfg.Log.JSON)
	var logger = logger_i.NewLogger("main")

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	components, err := app.Build(serviceContext, cfg, app.BuildOptions{})
	if err != nil {
		logger.Error("One or more services failed to initialize. Shutting down.", "err", err)
		return
	}
	defer components.Close()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, cfg.Jobs.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
		JobStore:          app.NewJobStore(serviceContext, cfg),
		RequestsPerWorker: cfg.Jobs.RequestsPerWorker,
	})

	ragService := rag.NewService(components.Engine, components.Pipeline)

	//init worker pool
	pool := worker.NewPool(service, ragService, worker.Options{
		MinWorkers:  cfg.Jobs.MinWorkers,
		MaxWorkers:  cfg.Jobs.MaxWorkers,
		IdleTimeout: cfg.Jobs.IdleTimeout,
		JobTimeout:  cfg.Jobs.JobTimeout,
	})
	pool.Start(stopWorkerChannel, &workerWaitGroup)

	mcp, err := mcpServer.New(components.Engine, components.Library)
	if err != nil {
		logger.Error("Couldn't start MCP server", "err", err)
		return
	}

	routes := server.Routes{
		Handler: handlers.New(handlers.Dependencies{
			Jobs:     service,
			Engine:   components.Engine,
			Ingester: components.Pipeline,
			Library:  components.Library,
		}, handlers.OptionsFromConfig(cfg)),
		Chain: middleware.New(middleware.OptionsFromConfig(cfg)),
		MCP:   mcp.Handler(),
	}
	if cfg.Server.NoAuthBypass {
		logger.Warn("Authentication is bypassed, do not run like this in production")
	}

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
		Timeout:          config.ShutdownContextTimeout,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(cfg.Server, routes)

	<-stopExecution
	logger.Info("Server stopped")
}
