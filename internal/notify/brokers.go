package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/switchyard/internal/logger"
)

// RedisSink publishes events on a Redis pub/sub channel.
type RedisSink struct {
	client  *goredis.Client
	channel string
}

func NewRedisSink(client *goredis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Notify(ctx context.Context, ev Event) error {
	payload, err := ev.encode()
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", s.channel, err)
	}
	return nil
}

// NATSSink publishes events on a NATS subject.
type NATSSink struct {
	nc      *nats.Conn
	subject string
}

// NewNATSSink connects to url and keeps reconnecting forever in the
// background.
func NewNATSSink(url, subject string, log logger.Logger) (*NATSSink, error) {
	opts := []nats.Option{
		nats.Name("switchyard-registry"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSSink{nc: nc, subject: subject}, nil
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Notify(_ context.Context, ev Event) error {
	if s.nc == nil || s.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	payload, err := ev.encode()
	if err != nil {
		return err
	}
	return s.nc.Publish(s.subject, payload)
}

// Connected reports the connection state for /infra.
func (s *NATSSink) Connected() bool {
	return s.nc != nil && s.nc.IsConnected()
}

func (s *NATSSink) Close() {
	if s.nc != nil {
		_ = s.nc.Drain()
		s.nc.Close()
	}
}
