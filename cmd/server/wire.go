package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/example/draft-agent/internal/agents"
	"github.com/example/draft-agent/internal/archive"
	"github.com/example/draft-agent/internal/catalog"
	"github.com/example/draft-agent/internal/config"
	"github.com/example/draft-agent/internal/fetch"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/metrics"
	"github.com/example/draft-agent/internal/orchestrator"
	"github.com/example/draft-agent/internal/providers/llm"
)

const serviceName = "draft-agent"

// app holds the wired components for one process.
type app struct {
	cfg     config.Config
	log     *logging.Logger
	runner  *orchestrator.Runner
	archive archive.Store
	metrics *metrics.Metrics
	closers []io.Closer
}

func wire(ctx context.Context, cfg config.Config, log *logging.Logger, serving bool) (*app, error) {
	a := &app{cfg: cfg, log: log}
	cat := catalog.Default()

	gen, err := llm.New(ctx, cfg.LLM, cfg.Credentials, agents.MockFixtures(cat), cfg.Mock.Delay)
	if err != nil {
		return nil, err
	}
	if c, ok := gen.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	fetcher, err := fetch.New(cfg.Research, cfg.Credentials, cat, cfg.Mock)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info("capabilities selected", map[string]interface{}{
		"generator": llm.ProviderName(gen),
		"fetcher":   fetcher.Name(),
	})

	var hooks []orchestrator.Hooks
	if serving && cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.metrics = metrics.New(reg)
		hooks = append(hooks, a.metrics.Hooks())
	}

	stageLog := log.WithComponent("stage")
	a.runner = orchestrator.NewRunner([]agents.Stage{
		agents.NewResearcher(fetcher, cat,
			agents.WithTimeout(cfg.Research.Timeout),
			agents.WithMaxContentBytes(cfg.Research.MaxContentBytes),
			agents.WithLogger(stageLog)),
		agents.NewAnalyst(gen, cat, agents.WithTimeout(cfg.LLM.Timeout), agents.WithLogger(stageLog)),
		agents.NewCopywriter(gen, cat, agents.WithTimeout(cfg.LLM.Timeout), agents.WithLogger(stageLog)),
	}, orchestrator.Options{
		Hooks:  orchestrator.ChainHooks(hooks...),
		Logger: log.WithComponent("runner"),
	})

	if !serving {
		return a, nil
	}
	store, err := openArchive(ctx, cfg.Archive)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.archive = store
	a.closers = append(a.closers, store)
	return a, nil
}

func openArchive(ctx context.Context, cfg config.ArchiveConfig) (archive.Store, error) {
	if cfg.RedisAddr == "" {
		return archive.NewMemory(cfg.Limit), nil
	}
	r := archive.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, archive.WithTTL(cfg.TTL))
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(pctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("archive redis %s: %w", cfg.RedisAddr, err)
	}
	return r, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close failed", map[string]interface{}{logging.FieldError: err})
		}
	}
}
