package app

import (
	"context"
	"net/http"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/switchyard/internal/compiler"
	"github.com/MrSnakeDoc/switchyard/internal/config"
	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/fetcher"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/notify"
	"github.com/MrSnakeDoc/switchyard/internal/publisher"
	"github.com/MrSnakeDoc/switchyard/internal/redis"
	"github.com/MrSnakeDoc/switchyard/internal/scheduler"
	"github.com/MrSnakeDoc/switchyard/internal/snapshot"
	"github.com/MrSnakeDoc/switchyard/internal/store/endpoints"
	"github.com/MrSnakeDoc/switchyard/internal/version"
	"github.com/MrSnakeDoc/switchyard/internal/watcher"
)

// Registry polls the node agents and publishes the merged routing table.
type Registry struct {
	cfg         *config.Registry
	logger      logger.Logger
	server      *httpserver.Server
	store       *endpoints.Store
	loop        *scheduler.Loop
	watcher     *watcher.FileWatcher
	hub         *notify.Hub
	redisClient *goredis.Client
	nats        *notify.NATSSink
}

func NewRegistry() *Registry {
	cfg := config.LoadRegistry()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	store, err := endpoints.Open(cfg.EndpointsFile, cfg.SeedEndpoints, loggerClient.Named("endpoints"))
	if err != nil {
		loggerClient.Error("failed to load endpoint file", logger.String("path", cfg.EndpointsFile), logger.Error(err))
		os.Exit(1)
	}

	// Optional notification brokers - fail fast when configured but unreachable
	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = redis.Connect(context.Background(), redis.OptionsFrom(cfg), loggerClient.Named("redis"))
		if err != nil {
			loggerClient.Error("failed to connect to redis", logger.Error(err))
			os.Exit(1)
		}
	}

	var natsSink *notify.NATSSink
	if cfg.NATSURL != "" {
		natsSink, err = notify.NewNATSSink(cfg.NATSURL, cfg.NATSSubject, loggerClient)
		if err != nil {
			loggerClient.Error("failed to connect to nats", logger.String("url", cfg.NATSURL), logger.Error(err))
			os.Exit(1)
		}
		loggerClient.Info("NATS initialized successfully", logger.String("subject", cfg.NATSSubject))
	}

	hub := notify.NewHub(loggerClient.Named("ws"))
	channels := []notify.Notifier{hub}
	if redisClient != nil {
		channels = append(channels, notify.NewRedisSink(redisClient, cfg.RedisChannel))
	}
	if natsSink != nil {
		channels = append(channels, natsSink)
	}
	fanout := notify.NewFanout(loggerClient.Named("notify"), channels...)

	var sinks []publisher.Sink
	if cfg.OutputFile != "" {
		sinks = append(sinks, publisher.NewFileSink(cfg.OutputFile))
	}
	if cfg.ProxyAPIURL != "" {
		sinks = append(sinks, publisher.NewAPISink(cfg.ProxyAPIURL, &http.Client{}, cfg.ProxyAPITimeout))
	}
	pub := publisher.New(cfg.EntryPoints, loggerClient.Named("publisher"), sinks...)

	fetch := fetcher.New(&http.Client{}, fetcher.Options{
		ManifestPath:   cfg.ManifestPath,
		Timeout:        cfg.FetchTimeout,
		Concurrency:    cfg.FetchConcurrency,
		RetainFailures: cfg.RetainFailures,
	}, loggerClient.Named("fetcher"))

	state := snapshot.New[domain.RegistryState]()
	cycle := &scheduler.RegistryCycle{
		Endpoints: store,
		Fetcher:   fetch,
		Compile:   compiler.Options{Scheme: cfg.BackendScheme, Port: cfg.BackendPort},
		Publisher: pub,
		Notifier:  fanout,
		Slot:      state,
		Logger:    loggerClient.Named("reconciler"),
	}
	loop := scheduler.NewLoop(scheduler.RegistryLoop, cfg.PollInterval, cycle.Run, loggerClient)

	// Endpoint edits are announced right away and reconciled out of band.
	store.OnChange(func(c endpoints.Change) {
		go fanout.Notify(context.Background(), notify.NewEvent(notify.SourceEndpoints, c.Count))
		loop.Trigger()
	})

	var fw *watcher.FileWatcher
	if cfg.WatchEndpoints {
		fw = watcher.New(cfg.EndpointsFile, store, loggerClient.Named("watcher"))
	}

	d := deps.Deps{
		Role:          deps.RoleRegistry,
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		AdminBurst:    cfg.AdminBurst,
		AdminRefill:   cfg.AdminRefillPerMin,
		Refresh:       loop.Trigger,
		Endpoints:     store,
		Registry:      state,
		Render:        pub.Render,
		Sinks:         pub.Sinks(),
		Notifications: fanout.Channels(),
		Hub:           hub,
		RedisClient:   redisClient,
		NATS:          natsSink,
	}

	return &Registry{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg.Server, loggerClient, d),
		store:       store,
		loop:        loop,
		watcher:     fw,
		hub:         hub,
		redisClient: redisClient,
		nats:        natsSink,
	}
}

func (a *Registry) Run() error {
	logBuild(a.logger, "registry", a.cfg.ListenPort)

	watchDone := make(chan struct{})
	start := func(ctx context.Context) {
		a.loop.Start(ctx)
		a.logger.Info("reconciliation loop started",
			logger.Duration("interval", a.cfg.PollInterval),
			logger.Int("endpoints", len(a.store.List())))

		if a.watcher == nil {
			close(watchDone)
			return
		}
		go func() {
			defer close(watchDone)
			if err := a.watcher.Run(ctx); err != nil {
				a.logger.Warn("endpoint file watcher stopped", logger.Error(err))
			}
		}()
	}

	stop := func() {
		a.loop.Stop()
		<-watchDone
		a.hub.Close()
	}

	err := serve(a.logger, a.server, a.cfg.ShutdownTimeout, start, stop)

	if a.nats != nil {
		a.nats.Close()
	}
	if a.redisClient != nil {
		if cerr := a.redisClient.Close(); cerr != nil {
			a.logger.Warnf("failed to close redis: %v", cerr)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}
	if err != nil {
		return err
	}

	a.logger.Info("✅ switchyard registry stopped cleanly")
	return nil
}
