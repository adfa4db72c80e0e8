package bot

import (
	"context"

	"tickbot/internal/notifier"
	"tickbot/internal/sched"
	logx "tickbot/pkg/logx"
)

// reminderSender delivers a fired reminder to its chat. A payload that
// cannot be decoded is dropped: the row is already gone by the time the
// scheduler calls Send, so there is nothing sane to retry.
type reminderSender struct {
	notify *notifier.Service
	log    logx.Logger
}

func (s *reminderSender) Send(ctx context.Context, ev sched.Event) error {
	p, err := decodeReminder(ev)
	if err != nil {
		s.log.Error("dropping reminder with bad payload",
			logx.Int64("id", ev.ID), logx.Err(err))
		return nil
	}
	s.notify.Notify(ctx, ev.TargetID, renderReminderFire(ev, p))
	return nil
}

type partySender struct {
	notify *notifier.Service
	log    logx.Logger
}

func (s *partySender) Send(ctx context.Context, ev sched.Event) error {
	p, err := decodeParty(ev)
	if err != nil {
		s.log.Error("dropping party with bad payload",
			logx.Int64("id", ev.ID), logx.Err(err))
		return nil
	}
	s.notify.Notify(ctx, ev.TargetID, renderPartyFire(ev, p))
	return nil
}
