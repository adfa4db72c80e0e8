// Package notifier performs the outbound half of a fired event: resolve the
// target chat, render-agnostic send, rate limiting.
//
// Delivery failures are terminal here. A vanished chat is abandoned silently,
// anything else (forbidden, transport) is logged and abandoned. Nothing is
// retried and nothing propagates, because a failed notification must never
// stall the scheduler's next cycle.
package notifier

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	kit "tickbot/internal/transport"
	logx "tickbot/pkg/logx"
)

type Config struct {
	// RatePerSec caps outbound sends across all scheduler instances.
	// Telegram throttles bots around 30 msg/s; default stays far below.
	RatePerSec int
}

type Service struct {
	adapter kit.Adapter
	log     logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{adapter: adapter, log: log.With(logx.String("comp", "notifier"))}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) currentLimiter() *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limiter
}

// Notify sends text to the chat and swallows delivery failures.
func (s *Service) Notify(ctx context.Context, chatID int64, text string) {
	if err := s.currentLimiter().Wait(ctx); err != nil {
		// Context cancelled while queued; shutdown, not a delivery failure.
		return
	}

	err := s.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, &kit.SendOptions{
		ParseMode:      "HTML",
		DisablePreview: true,
	})
	switch {
	case err == nil:
		s.log.Debug("notification sent", logx.Int64("chat", chatID))
	case errors.Is(err, kit.ErrChatNotFound):
		// Target gone: abandon without noise.
		s.log.Debug("notification target gone", logx.Int64("chat", chatID))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	default:
		s.log.Warn("notification failed", logx.Int64("chat", chatID), logx.Err(err))
	}
}
