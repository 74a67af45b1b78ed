package stream

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeagent/src/notify"
	"tradeagent/src/utils"
)

type controllable interface {
	Connect(ctx context.Context)
	Close()
}

// Manager supervises the stream sessions against the market calendar:
// while the market is open every session is kept connected, while it is
// closed they are torn down. Checks run on a fixed interval and both
// Connect and Close are idempotent, so a check that changes nothing is
// harmless.
type Manager struct {
	clock    MarketClock
	interval time.Duration
	notifier notify.Notifier
	log      *logger.Entry
	sessions []controllable

	knownClosed bool
	hasState    bool
}

func NewManager(cfg Config, clock MarketClock, notifier notify.Notifier, sessions ...controllable) *Manager {
	return &Manager{
		clock:    clock,
		interval: cfg.MarketCheckInterval,
		notifier: notifier,
		log:      logger.WithField("component", "StreamManager"),
		sessions: sessions,
	}
}

// Run blocks until the context ends, checking the market on every
// interval. Sessions are closed on the way out.
func (m *Manager) Run(ctx context.Context) {
	m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, s := range m.sessions {
				s.Close()
			}
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Manager) check(ctx context.Context) {
	closed, err := m.clock.IsMarketClosed(ctx)
	if err != nil {
		m.log.WithError(err).Warn("market status check failed, leaving sessions as they are")
		return
	}

	if m.hasState && closed == m.knownClosed {
		m.apply(ctx, closed)
		return
	}

	if closed {
		msg := "🌙 Market closed, suspending streams"
		if nextOpen, err := m.clock.GetNextMarketOpen(ctx); err == nil {
			msg += " until " + utils.FormatTime(nextOpen)
		}
		m.log.Info("market closed, closing stream sessions")
		if m.hasState {
			m.notifier.Send(msg)
		}
	} else {
		m.log.Info("market open, ensuring stream sessions are connected")
		if m.hasState {
			m.notifier.Send("🔔 Market open, resuming streams")
		}
	}
	m.hasState = true
	m.knownClosed = closed
	m.apply(ctx, closed)
}

func (m *Manager) apply(ctx context.Context, closed bool) {
	for _, s := range m.sessions {
		if closed {
			s.Close()
		} else {
			s.Connect(ctx)
		}
	}
}
