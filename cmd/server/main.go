package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kwatuha/imes-sub010/modules/projects"
	"github.com/kwatuha/imes-sub010/modules/projects/infrastructure/persistence"
	"github.com/kwatuha/imes-sub010/pkg/application"
	"github.com/kwatuha/imes-sub010/pkg/configuration"
	"github.com/kwatuha/imes-sub010/pkg/eventbus"
	"github.com/kwatuha/imes-sub010/pkg/metrics"
	"github.com/kwatuha/imes-sub010/pkg/middleware"
	"github.com/kwatuha/imes-sub010/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	connectCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	if err := persistence.Migrate(connectCtx, pool, logger); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := app.RegisterModules(projects.NewModule(&projects.ModuleOptions{
		Import:      conf.Import,
		ActorHeader: conf.ActorHeader,
	})); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader
	app.RegisterMiddleware(
		middleware.WithLogger(logger, loggerOpts),
		middleware.Provide(pool),
	)
	app.RegisterControllers(metrics.NewHealthController(pool))
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := server.NewHTTPServer(app, nil, nil).Start(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
