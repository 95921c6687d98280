package checker

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stadion-bot/booking"
	"stadion-bot/metrics"
	"stadion-bot/types"
)

// Sessions resolves the bearer token of a chat.
type Sessions interface {
	GetSession(ctx context.Context, chatID int64) (*types.Session, error)
}

// Notifier is told when a flow's availability changed so it can redraw the
// dialog. dropped is true when the selection had to be cleared.
type Notifier interface {
	AvailabilityChanged(chatID int64, f *booking.Flow, dropped bool)
}

// Checker periodically refreshes the availability of open booking dialogs.
// It only reads; hours are never held on the user's behalf.
type Checker struct {
	registry      *booking.Registry
	loader        *booking.Loader
	sessions      Sessions
	notify        Notifier
	dayInterval   time.Duration
	nightInterval time.Duration
	now           func() time.Time
	log           *zap.Logger
}

func New(registry *booking.Registry, loader *booking.Loader, sessions Sessions, notify Notifier, day, night time.Duration, log *zap.Logger) *Checker {
	return &Checker{
		registry:      registry,
		loader:        loader,
		sessions:      sessions,
		notify:        notify,
		dayInterval:   day,
		nightInterval: night,
		now:           time.Now,
		log:           log,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.log.Info("Availability checker started",
		zap.Duration("day_interval", c.dayInterval),
		zap.Duration("night_interval", c.nightInterval))
	go c.adaptiveCheckLoop(ctx)
}

// Interval picks the pause before the next pass: from 01:00 to 08:00 the
// night interval, otherwise the day interval.
func (c *Checker) Interval(t time.Time) time.Duration {
	if h := t.Hour(); h >= 1 && h < 8 {
		return c.nightInterval
	}
	return c.dayInterval
}

func (c *Checker) adaptiveCheckLoop(ctx context.Context) {
	for {
		wait := c.Interval(c.now())
		c.log.Debug("Next availability check", zap.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.log.Info("Availability checker stopped")
			return
		case <-timer.C:
		}
		c.CheckAll(ctx)
	}
}

// CheckAll refreshes every open flow that is still choosing hours.
func (c *Checker) CheckAll(ctx context.Context) {
	metrics.OpenFlows.Set(float64(c.registry.Len()))

	checked := 0
	c.registry.Each(func(chatID int64, f *booking.Flow) {
		if ctx.Err() != nil {
			return
		}
		if c.CheckFlow(ctx, chatID, f) {
			checked++
		}
	})
	c.log.Debug("Availability check finished", zap.Int("flows", checked))
}

// CheckFlow reloads one flow's snapshot and notifies when the booked hours
// differ from what the user is looking at. It reports whether a reload was
// attempted.
func (c *Checker) CheckFlow(ctx context.Context, chatID int64, f *booking.Flow) bool {
	current := f.Snapshot()
	if f.State() != booking.StateSelection || current == nil {
		return false
	}

	sess, err := c.sessions.GetSession(ctx, chatID)
	if err != nil {
		c.log.Warn("Checker could not read session", zap.Int64("chat_id", chatID), zap.Error(err))
		return false
	}
	if sess == nil {
		return false
	}

	fresh, err := c.loader.Load(ctx, sess.Token, f.StadiumID(), f.Date())
	if err != nil {
		c.log.Warn("Checker could not reload availability",
			zap.Int64("chat_id", chatID),
			zap.Int64("stadium_id", f.StadiumID()),
			zap.Error(err))
		return true
	}
	if fresh.SameBooked(current) {
		return true
	}

	dropped, err := f.SetSnapshot(fresh)
	if err != nil {
		// The user moved on (new date, confirmation, close) while we were loading.
		if !errors.Is(err, booking.ErrStaleSnapshot) && !errors.Is(err, booking.ErrWrongState) {
			c.log.Warn("Checker could not install snapshot", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return true
	}

	c.log.Info("Availability changed for open dialog",
		zap.Int64("chat_id", chatID),
		zap.Int64("stadium_id", f.StadiumID()),
		zap.Bool("selection_dropped", dropped))
	c.notify.AvailabilityChanged(chatID, f, dropped)
	return true
}
