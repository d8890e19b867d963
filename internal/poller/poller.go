// Package poller runs the periodic fetch-validate-notify cycle.
//
// The loop is a fold over State: each iteration takes the previous state and
// returns the next one, with all I/O behind the Client and Notifier
// interfaces so a cycle is testable without a network.
package poller

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MattBortsov/homework-bot/internal/metrics"
	"github.com/MattBortsov/homework-bot/internal/practicum"
	"github.com/MattBortsov/homework-bot/internal/review"
	"github.com/MattBortsov/homework-bot/pkg/logx"
)

// Client is the slice of the status API client the loop needs.
type Client interface {
	Fetch(ctx context.Context, since int64) (json.RawMessage, error)
}

// Notifier delivers a message; it never fails observably.
type Notifier interface {
	Notify(ctx context.Context, kind, text string)
}

// State is the loop-local state threaded through iterations.
// Watermark is the from_date cursor; LastErrorKey suppresses repeated
// notifications for the same failure.
type State struct {
	Watermark    int64
	LastErrorKey string
}

// Stats counts cycle outcomes since process start.
type Stats struct {
	Cycles         uint64
	Changed        uint64
	Unchanged      uint64
	Errors         uint64
	ErrorsNotified uint64
}

// Snapshot describes the most recent completed cycle, for /status.
type Snapshot struct {
	At        time.Time
	Outcome   string // "changed" | "unchanged" | "error"
	Detail    string // last message or error text
	Watermark int64
	Stats     Stats
}

type Config struct {
	Interval time.Duration
}

type Poller struct {
	client   Client
	notifier Notifier
	log      logx.Logger
	now      func() time.Time

	kick chan struct{}

	mu       sync.Mutex
	interval time.Duration
	stats    Stats
	last     Snapshot
}

func New(cfg Config, client Client, notifier Notifier, log logx.Logger) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Poller{
		client:   client,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		kick:     make(chan struct{}, 1),
		interval: interval,
	}
}

// SetInterval changes the poll period for subsequent cycles (hot reload).
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

func (p *Poller) currentInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// TriggerCheck requests an immediate cycle outside the timer (for /check).
// Non-blocking; a pending trigger coalesces with the next one.
func (p *Poller) TriggerCheck() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Status returns the most recent cycle snapshot.
func (p *Poller) Status() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// StatsSnapshot returns cumulative cycle counters (for the digest).
func (p *Poller) StatsSnapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Run executes cycles until ctx is cancelled. The first cycle runs
// immediately; afterwards the loop sleeps for the configured interval
// between iterations regardless of success or failure.
//
// The initial watermark is "now": a restart only reports changes that
// happen after it (no persisted offset).
func (p *Poller) Run(ctx context.Context) {
	st := State{Watermark: p.now().Unix()}
	p.log.Info("polling started",
		logx.Int64("watermark", st.Watermark), logx.Duration("interval", p.currentInterval()))

	for {
		st = p.step(ctx, st)

		t := time.NewTimer(p.currentInterval())
		select {
		case <-ctx.Done():
			t.Stop()
			p.log.Info("polling stopped")
			return
		case <-p.kick:
			t.Stop()
			p.log.Info("immediate check requested")
		case <-t.C:
		}
	}
}

// step performs one polling iteration and returns the next state.
func (p *Poller) step(ctx context.Context, st State) State {
	raw, err := p.client.Fetch(ctx, st.Watermark)
	if err != nil {
		return p.fail(ctx, st, err)
	}

	env, err := practicum.Validate(raw)
	if err != nil {
		return p.fail(ctx, st, err)
	}

	outcome, detail := "unchanged", ""
	if len(env.Homeworks) > 0 {
		// Only the first (newest) entry is reported.
		msg, err := review.Describe(env.Homeworks[0])
		if err != nil {
			return p.fail(ctx, st, err)
		}
		p.notifier.Notify(ctx, "status", msg)
		outcome, detail = "changed", msg
	} else {
		p.log.Debug("no new statuses", logx.Int64("watermark", st.Watermark))
	}

	// Successful cycle: clear the dedup slot so a recurrence of a previous
	// error is notified again.
	st.LastErrorKey = ""

	if env.CurrentDate != nil {
		st.Watermark = *env.CurrentDate
	} else {
		st.Watermark = p.now().Unix()
	}

	p.finish(st, outcome, detail)
	return st
}

func (p *Poller) fail(ctx context.Context, st State, err error) State {
	key := errorKey(err)
	kind := errorKind(key)
	msg := "Homework bot failure: " + err.Error()

	p.log.Error("poll cycle failed",
		logx.String("kind", kind), logx.String("key", key), logx.Err(err))
	metrics.PollCycles.WithLabelValues("error").Inc()
	metrics.PollErrors.WithLabelValues(kind).Inc()

	notified := false
	if key != st.LastErrorKey {
		p.notifier.Notify(ctx, "error", msg)
		st.LastErrorKey = key
		notified = true
	} else {
		metrics.Notifications.WithLabelValues("suppressed").Inc()
	}

	p.mu.Lock()
	p.stats.Cycles++
	p.stats.Errors++
	if notified {
		p.stats.ErrorsNotified++
	}
	p.last = Snapshot{At: p.now(), Outcome: "error", Detail: err.Error(), Watermark: st.Watermark, Stats: p.stats}
	p.mu.Unlock()

	// Watermark stays put: the failed window is retried next cycle.
	return st
}

func (p *Poller) finish(st State, outcome, detail string) {
	metrics.PollCycles.WithLabelValues(outcome).Inc()

	p.mu.Lock()
	p.stats.Cycles++
	switch outcome {
	case "changed":
		p.stats.Changed++
	case "unchanged":
		p.stats.Unchanged++
	}
	p.last = Snapshot{At: p.now(), Outcome: outcome, Detail: detail, Watermark: st.Watermark, Stats: p.stats}
	p.mu.Unlock()
}
