// Package publisher delivers the compiled routing configuration to the
// reverse proxy.
package publisher

import (
	"context"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/metrics"
)

// Result reports what happened to each sink.
type Result struct {
	Document Document
	Errors   map[string]error // sink name -> failure
	Written  []string         // sinks that accepted the document
}

// OK reports whether every sink accepted the document.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Publisher writes the same document to every configured sink.
type Publisher struct {
	sinks       []Sink
	entryPoints []string
	logger      logger.Logger
}

// New creates a publisher. Nil sinks are ignored.
func New(entryPoints []string, log logger.Logger, sinks ...Sink) *Publisher {
	p := &Publisher{entryPoints: entryPoints, logger: log}
	for _, s := range sinks {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
	return p
}

// Sinks returns the names of configured sinks.
func (p *Publisher) Sinks() []string {
	names := make([]string, 0, len(p.sinks))
	for _, s := range p.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Render converts cfg with the publisher's entry points.
func (p *Publisher) Render(cfg domain.RoutingConfig) Document {
	return Render(cfg, p.entryPoints)
}

// Publish attempts every sink. One failing sink does not prevent the
// others from being written.
func (p *Publisher) Publish(ctx context.Context, cfg domain.RoutingConfig) Result {
	res := Result{
		Document: p.Render(cfg),
		Errors:   make(map[string]error),
	}

	for _, s := range p.sinks {
		if err := s.Write(ctx, res.Document); err != nil {
			res.Errors[s.Name()] = err
			metrics.SinkWrite(s.Name(), false)
			p.logger.Error("failed to publish routing configuration",
				logger.String("sink", s.Name()),
				logger.Error(err))
			continue
		}
		res.Written = append(res.Written, s.Name())
		metrics.SinkWrite(s.Name(), true)
	}

	p.logger.Info("routing configuration published",
		logger.Int("routes", cfg.Len()),
		logger.Strings("sinks", res.Written))
	return res
}
