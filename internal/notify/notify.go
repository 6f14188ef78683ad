// Package notify tells interested parties that the routing state changed.
// Delivery is best effort: a failing channel is logged and never blocks a
// reconciliation cycle.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/logger"
)

// Event sources.
const (
	SourceCycle     = "cycle"
	SourceEndpoints = "endpoints"
)

// Event is the payload pushed to every channel.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	AffectedCount int       `json:"affectedCount"`
	Source        string    `json:"source"`
}

// NewEvent stamps an event with the current time.
func NewEvent(source string, affected int) Event {
	return Event{Timestamp: time.Now().UTC(), AffectedCount: affected, Source: source}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier is one delivery channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// Fanout delivers every event to all of its channels.
type Fanout struct {
	notifiers []Notifier
	logger    logger.Logger
}

// NewFanout ignores nil notifiers.
func NewFanout(log logger.Logger, notifiers ...Notifier) *Fanout {
	f := &Fanout{logger: log}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Channels returns the names of the configured channels.
func (f *Fanout) Channels() []string {
	names := make([]string, 0, len(f.notifiers))
	for _, n := range f.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Notify sends ev everywhere and returns the number of channels that
// accepted it.
func (f *Fanout) Notify(ctx context.Context, ev Event) int {
	delivered := 0
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			f.logger.Warn("change notification failed",
				logger.String("channel", n.Name()),
				logger.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}
