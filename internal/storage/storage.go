// Package storage persists notification delivery history.
//
// This is an audit trail of what the bot tried to send, not polling state:
// the watermark is process-local and resets on every restart.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MattBortsov/homework-bot/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Delivery records one notification attempt.
// Keep it compact and schema-stable.
type Delivery struct {
	At   time.Time
	Kind string // "status" | "error" | "digest"
	Text string
	OK   bool
	Err  string
}

// Store is the minimal persistence API used by the notifier and /status.
type Store interface {
	AppendDelivery(ctx context.Context, d Delivery) error
	Recent(ctx context.Context, n int) ([]Delivery, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) when no path is configured (history disabled).
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return openSQLite(cfg, log)
}
