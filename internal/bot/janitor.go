package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tickbot/internal/sched"
	"tickbot/internal/storage"
	kit "tickbot/internal/transport"
	logx "tickbot/pkg/logx"
)

const sweepTimeout = 2 * time.Minute

// janitor periodically drops events whose target chat is gone (bot kicked,
// chat deleted). Without it a dead chat's event would fail on every fire and,
// when recurring, fail forever.
type janitor struct {
	adapter kit.Adapter
	targets []janitorTarget
	log     logx.Logger

	cron *cron.Cron
}

type janitorTarget struct {
	name  string
	svc   *sched.Service
	store *storage.EventStore
}

func newJanitor(adapter kit.Adapter, targets []janitorTarget, log logx.Logger) *janitor {
	return &janitor{
		adapter: adapter,
		targets: targets,
		log:     log.With(logx.String("comp", "janitor")),
	}
}

func (j *janitor) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = "@daily"
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		sctx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()
		j.sweep(sctx)
	})
	if err != nil {
		return fmt.Errorf("janitor schedule %q: %w", schedule, err)
	}
	j.cron = c
	c.Start()
	j.log.Info("janitor started", logx.String("schedule", schedule))
	return nil
}

func (j *janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.cron = nil
}

func (j *janitor) sweep(ctx context.Context) {
	// Chat liveness is cached across targets: both schedulers usually point
	// at the same handful of chats.
	alive := make(map[int64]bool)

	for _, t := range j.targets {
		evs, err := t.store.All(ctx)
		if err != nil {
			j.log.Error("sweep load failed", logx.String("kind", t.name), logx.Err(err))
			continue
		}

		pruned := 0
		armedPruned := false
		for _, ev := range evs {
			ok, cached := alive[ev.TargetID]
			if !cached {
				var err error
				ok, err = j.adapter.ChatExists(ctx, ev.TargetID)
				if err != nil {
					// Transient lookup failure: leave the chat alone this round.
					j.log.Debug("chat lookup failed", logx.Int64("chat", ev.TargetID), logx.Err(err))
					continue
				}
				alive[ev.TargetID] = ok
			}
			if ok {
				continue
			}
			if err := t.store.Delete(ctx, ev.ID); err != nil {
				j.log.Error("sweep delete failed", logx.Int64("id", ev.ID), logx.Err(err))
				continue
			}
			pruned++
			if id, armed := t.svc.ArmedID(); armed && id == ev.ID {
				armedPruned = true
			}
		}
		if armedPruned {
			t.svc.Restart(nil)
		}
		if pruned > 0 {
			j.log.Info("pruned events for dead chats",
				logx.String("kind", t.name), logx.Int("count", pruned))
		}
	}
}
