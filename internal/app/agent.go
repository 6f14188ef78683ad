package app

import (
	"context"
	"os"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/config"
	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/switchyard/internal/inspector"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/scheduler"
	"github.com/MrSnakeDoc/switchyard/internal/snapshot"
	"github.com/MrSnakeDoc/switchyard/internal/version"
)

// Agent serves the manifest of the containers running on this node.
type Agent struct {
	cfg     *config.Agent
	logger  logger.Logger
	server  *httpserver.Server
	runtime *inspector.DockerRuntime
	loop    *scheduler.Loop
}

func NewAgent() *Agent {
	cfg := config.LoadAgent()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	rt, err := inspector.NewDockerRuntime(cfg.DockerHost)
	if err != nil {
		loggerClient.Error("failed to create docker client", logger.Error(err))
		os.Exit(1)
	}

	insp := inspector.New(rt, cfg.NodeName, cfg.DomainBase, loggerClient.Named("inspector"))
	manifest := snapshot.New[domain.Manifest]()
	cycle := &scheduler.AgentCycle{
		Inspector: insp,
		Slot:      manifest,
		Logger:    loggerClient,
	}
	loop := scheduler.NewLoop(scheduler.AgentLoop, cfg.InspectInterval, cycle.Run, loggerClient)

	d := deps.Deps{
		Role:         deps.RoleAgent,
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Refresh:      loop.Trigger,
		NodeName:     cfg.NodeName,
		DomainBase:   cfg.DomainBase,
		ManifestPath: cfg.ManifestPath,
		Manifest:     manifest,
		Runtime:      rt,
	}

	return &Agent{
		cfg:     cfg,
		logger:  loggerClient,
		server:  httpserver.New(cfg.Server, loggerClient, d),
		runtime: rt,
		loop:    loop,
	}
}

func (a *Agent) Run() error {
	logBuild(a.logger, "agent", a.cfg.ListenPort)
	a.logger.Info("node identity",
		logger.String("runner", a.cfg.NodeName),
		logger.String("domain", a.cfg.DomainBase))

	start := func(ctx context.Context) {
		a.loop.Start(ctx)
		a.logger.Info("inspection loop started",
			logger.Duration("interval", a.cfg.InspectInterval))
	}

	err := serve(a.logger, a.server, a.cfg.ShutdownTimeout, start, a.loop.Stop)

	if cerr := a.runtime.Close(); cerr != nil {
		a.logger.Warnf("failed to close docker client: %v", cerr)
	}
	if err != nil {
		return err
	}

	a.logger.Info("✅ switchyard agent stopped cleanly")
	return nil
}
