// Package notify delivers text messages to the configured chat.
//
// Delivery failures are logged and swallowed: a notification failure must
// never crash the polling loop or be mistaken for a polling failure.
package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/MattBortsov/homework-bot/internal/metrics"
	"github.com/MattBortsov/homework-bot/internal/storage"
	"github.com/MattBortsov/homework-bot/internal/transport"
	"github.com/MattBortsov/homework-bot/pkg/logx"
)

type Config struct {
	ChatID     int64
	RatePerSec int
}

type Service struct {
	adapter transport.Adapter
	store   storage.Store // nil when history is disabled
	log     logx.Logger

	chatID  int64
	limiter *rate.Limiter
}

func New(cfg Config, adapter transport.Adapter, store storage.Store, log logx.Logger) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &Service{
		adapter: adapter,
		store:   store,
		log:     log,
		chatID:  cfg.ChatID,
		// Token bucket: burst = rate per sec, so short spikes don't block.
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Notify sends text to the configured chat. It never returns an error:
// transport and API failures are logged, counted and recorded, then dropped.
// kind tags the delivery in history and metrics ("status", "error", "digest").
func (s *Service) Notify(ctx context.Context, kind, text string) {
	if text == "" {
		return
	}

	if err := s.limiter.Wait(ctx); err != nil {
		// Shutting down; nothing to deliver.
		return
	}

	err := s.adapter.SendText(ctx, s.chatID, text, &transport.SendOptions{DisablePreview: true})
	if err != nil {
		s.log.Warn("notification send failed",
			logx.String("kind", kind), logx.Int64("chat_id", s.chatID), logx.Err(err))
		metrics.Notifications.WithLabelValues("failed").Inc()
	} else {
		s.log.Debug("notification sent",
			logx.String("kind", kind), logx.Int64("chat_id", s.chatID), logx.String("text", text))
		metrics.Notifications.WithLabelValues("sent").Inc()
	}

	s.record(kind, text, err)
}

func (s *Service) record(kind, text string, sendErr error) {
	if s.store == nil {
		return
	}
	d := storage.Delivery{At: time.Now(), Kind: kind, Text: text, OK: sendErr == nil}
	if sendErr != nil {
		d.Err = sendErr.Error()
	}
	// History writes must not delay or fail delivery handling.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.store.AppendDelivery(ctx, d); err != nil {
		s.log.Debug("history append failed", logx.Err(err))
	}
}
