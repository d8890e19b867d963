// Package digest sends a periodic activity summary through the notifier.
package digest

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/MattBortsov/homework-bot/internal/poller"
	"github.com/MattBortsov/homework-bot/pkg/logx"
)

type Notifier interface {
	Notify(ctx context.Context, kind, text string)
}

type StatsSource interface {
	StatsSnapshot() poller.Stats
}

// Service schedules digest messages with a cron expression
// (standard 5-field specs and descriptors like "@daily").
type Service struct {
	schedule string
	source   StatsSource
	notifier Notifier
	log      logx.Logger

	c *cron.Cron

	mu   sync.Mutex
	prev poller.Stats
}

func New(schedule string, source StatsSource, notifier Notifier, log logx.Logger) *Service {
	return &Service{schedule: schedule, source: source, notifier: notifier, log: log}
}

// Start registers the cron entry and begins running it.
// A bad expression is an error so typos surface at startup, not silently.
func (s *Service) Start(ctx context.Context) error {
	if s.schedule == "" {
		return nil
	}
	s.c = cron.New()
	_, err := s.c.AddFunc(s.schedule, func() { s.send(ctx) })
	if err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.schedule, err)
	}
	s.c.Start()
	s.log.Info("digest scheduled", logx.String("schedule", s.schedule))
	return nil
}

func (s *Service) Stop() {
	if s.c != nil {
		<-s.c.Stop().Done()
	}
}

func (s *Service) send(ctx context.Context) {
	cur := s.source.StatsSnapshot()

	s.mu.Lock()
	prev := s.prev
	s.prev = cur
	s.mu.Unlock()

	text := Compose(delta(prev, cur))
	s.notifier.Notify(ctx, "digest", text)
}

func delta(prev, cur poller.Stats) poller.Stats {
	return poller.Stats{
		Cycles:         cur.Cycles - prev.Cycles,
		Changed:        cur.Changed - prev.Changed,
		Unchanged:      cur.Unchanged - prev.Unchanged,
		Errors:         cur.Errors - prev.Errors,
		ErrorsNotified: cur.ErrorsNotified - prev.ErrorsNotified,
	}
}

// Compose renders the digest text for one stats window.
func Compose(w poller.Stats) string {
	return fmt.Sprintf(
		"Homework bot digest: %d checks, %d status changes, %d quiet, %d failures (%d reported).",
		w.Cycles, w.Changed, w.Unchanged, w.Errors, w.ErrorsNotified,
	)
}
