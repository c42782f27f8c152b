package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"gateway/internal/backend"
	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/internal/logger"
	"gateway/internal/proxy"
	"gateway/internal/publisher"
	"gateway/internal/route"
	"gateway/internal/routing"
	"gateway/internal/soap"
	"gateway/internal/supervisor"
	"gateway/pkg/bootstrap"
	"gateway/pkg/health"
	"gateway/pkg/metrics"
	"gateway/pkg/middleware"
	"gateway/pkg/ratelimit"
	"gateway/pkg/retry"
	"gateway/pkg/schema"
	"gateway/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	router         *routing.ContentRouter
	publisher      *publisher.Publisher
	routes         *route.Registry
	supervisor     *supervisor.Supervisor
	checkers       *health.CheckerRegistry
	limiter        *ratelimit.Limiter
	engine         *gin.Engine
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	metrics.RegisterGatewayMetrics()

	routeIDs := make([]string, 0, len(a.Config.Routes))
	for _, rc := range a.Config.Routes {
		routeIDs = append(routeIDs, rc.ID)
	}
	tp, err := tracing.Init(a.Config.Tracing, tracing.GatewayAttributes(routeIDs, a.Config.Broker.Kafka.GroupID)...)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.InitBroker(ctx); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.InitRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	if err := a.initRouting(); err != nil {
		return fmt.Errorf("failed to initialize routing: %w", err)
	}

	if err := a.initRoutes(); err != nil {
		return fmt.Errorf("failed to initialize consumer routes: %w", err)
	}

	a.initHealth()
	a.initHTTPServer()
	return nil
}

func (a *App) initRouting() error {
	router, err := routing.Build(a.Config.Routing, a.Logger)
	if err != nil {
		return err
	}
	a.router = router

	kafkaCfg := a.Config.Broker.Kafka
	a.publisher = publisher.New(publisher.Config{
		DLQTopic:       kafkaCfg.DLQTopic,
		Policy:         kafkaCfg.PublishRetry.Policy(retry.PublishPolicy()),
		WireTapTimeout: a.Config.Gateway.WireTapTimeout,
	}, router, a.Producer, a.Logger)
	return nil
}

func (a *App) initRoutes() error {
	registry, err := route.BuildRegistry(route.Dependencies{
		Config:    a.Config,
		Producer:  a.Producer,
		Consumers: a.Consumers,
		Redis:     a.Redis,
		Schemas:   schema.NewRegistry(),
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}
	a.routes = registry
	a.supervisor = supervisor.New(registry, registry.IDs())
	return nil
}

func (a *App) initHealth() {
	a.checkers = health.NewCheckerRegistry()
	a.checkers.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	if a.Redis != nil {
		a.checkers.Register(health.NewRedisChecker(a.Redis))
	}
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if a.Config.Tracing.Enabled {
		engine.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.RecoveryMiddleware(a.Logger))
	engine.Use(middleware.LoggerMiddleware(a.Logger))

	if rl := a.Config.Server.RateLimit; rl.Enabled {
		cfg := ratelimit.FromSettings(rl)
		a.limiter = ratelimit.New(cfg)
		engine.Use(a.limiter.Middleware())
		a.Logger.Infow("Rate limiting enabled", "rps", cfg.RPS, "burst", cfg.Burst)
	}

	client := backend.NewClient(a.Config.Gateway, a.Config.CircuitBreaker)

	publisher.NewHandler(a.publisher, a.Logger).RegisterRoutes(engine)
	route.NewHandler(a.routes, a.Logger).RegisterRoutes(engine)
	supervisor.NewHandler(a.supervisor, a.checkers).RegisterRoutes(engine)
	soap.NewHandler(soap.DefaultCenters(), client, a.publisher, a.Logger).RegisterRoutes(engine)
	proxy.NewHandler(proxy.DefaultResources(), client, a.publisher, a.Logger).RegisterRoutes(engine)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if a.Config.Server.Swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	a.engine = engine
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      engine,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

// Run starts the auto-start routes and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	// Routes are stopped explicitly on shutdown so in-flight messages resolve.
	routesCtx := context.WithoutCancel(ctx)
	autoStart := route.AutoStartIDs(a.Config)
	if err := a.routes.StartAll(routesCtx, autoStart); err != nil {
		return fmt.Errorf("failed to start routes: %w", err)
	}
	a.Logger.InfowCtx(ctx, "Consumer routes started", "routes", autoStart)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

// Shutdown stops the HTTP server first, then drains the routes and the wire
// tap. The producer and Redis are closed by Base only after both drains have
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
			cancel()
		}

		drainCtx, cancelDrain := context.WithTimeout(ctx, route.DrainBudget(a.Config))
		defer cancelDrain()

		if a.routes != nil {
			if err := a.routes.StopAll(drainCtx); err != nil {
				errs = append(errs, err)
			}
		}

		if a.publisher != nil {
			if err := a.publisher.Wait(drainCtx); err != nil {
				errs = append(errs, fmt.Errorf("wire tap drain error: %w", err))
			}
		}

		tracerCtx, cancelTracer := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer cancelTracer()
		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(tracerCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return errs
	})
}
