package transport

import "context"

// Command is an incoming bot command from the configured chat.
type Command struct {
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

type SendOptions struct {
	DisablePreview bool
}

// Adapter abstracts the messaging platform so the notifier and the poller
// can be tested against a fake.
type Adapter interface {
	// Start begins receiving commands, delivering them to out.
	// It returns once polling is running; Stop ends it.
	Start(ctx context.Context, out chan<- Command) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, chatID int64, text string, opt *SendOptions) error
}
