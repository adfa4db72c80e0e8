package transport

import (
	"context"
	"errors"
)

// ErrChatNotFound marks a delivery target that no longer resolves
// (chat deleted, bot kicked). Callers treat it as "abandon silently".
var ErrChatNotFound = errors.New("chat not found")

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

type Update struct {
	Message *Message
}

type ChatTarget struct {
	ChatID int64
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Adapter is the platform boundary. The scheduler core and command layer
// never touch the chat SDK directly.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error

	// ChatExists reports whether the target still resolves.
	// Used by the janitor to prune events with dead targets.
	ChatExists(ctx context.Context, chatID int64) (bool, error)
}
