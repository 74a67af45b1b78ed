package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"tradeagent/src/model"
	"tradeagent/src/notify"
	"tradeagent/src/trading"
)

// State is the session lifecycle position. Transitions:
// Disconnected -> Connecting -> Authenticating -> Subscribed -> Closing -> Disconnected.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateSubscribed
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Conn is the slice of *websocket.Conn the session uses, injectable for
// tests.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens a websocket connection to a URL.
type Dialer func(ctx context.Context, url string) (Conn, error)

func gorillaDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// MarketClock answers whether trading is currently possible. Satisfied by
// *connectors.Client.
type MarketClock interface {
	IsMarketClosed(ctx context.Context) (bool, error)
	GetNextMarketOpen(ctx context.Context) (time.Time, error)
}

// Session maintains one authenticated, subscribed websocket channel and
// keeps it alive: heartbeats while up, reconnects with exponential backoff
// when it drops, suspends until the next market open when the market is
// closed, and gives up permanently on authentication-class errors.
type Session struct {
	name      string
	url       string
	cfg       Config
	subFrame  subscribeFrame
	onTick    func(model.Tick)
	onTrade   func(trading.TradeEvent)
	dial      Dialer
	clock     MarketClock
	notifier  notify.Notifier
	log       *logger.Entry
	retryWait *backoff

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	mu          sync.Mutex
	writeMu     sync.Mutex
	state       State
	conn        Conn
	intentional bool
	fatal       bool
}

// NewMarketDataSession builds the price channel: subscribes to bars for
// the given symbols and forwards each one as a tick.
func NewMarketDataSession(cfg Config, symbols []string, clock MarketClock, notifier notify.Notifier, onTick func(model.Tick)) *Session {
	s := newSession(cfg, "market-data", cfg.MarketDataURL, clock, notifier)
	s.subFrame = subscribeFrame{Action: "subscribe", Bars: symbols, Trades: symbols, Quotes: symbols}
	s.onTick = onTick
	return s
}

// NewAccountSession builds the fill channel: subscribes to trade updates
// and forwards each confirmed fill.
func NewAccountSession(cfg Config, clock MarketClock, notifier notify.Notifier, onTrade func(trading.TradeEvent)) *Session {
	s := newSession(cfg, "account", cfg.AccountURL, clock, notifier)
	s.subFrame = subscribeFrame{Action: "subscribe", TradeUpdates: true}
	s.onTrade = onTrade
	return s
}

func newSession(cfg Config, name, url string, clock MarketClock, notifier notify.Notifier) *Session {
	return &Session{
		name:      name,
		url:       url,
		cfg:       cfg,
		dial:      gorillaDialer,
		clock:     clock,
		notifier:  notifier,
		log:       logger.WithField("channel", name),
		retryWait: newBackoff(cfg.BackoffFloor, cfg.BackoffCap),
		now:       time.Now,
		sleep:     sleepCtx,
		state:     StateDisconnected,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect brings the session up if it is down. Idempotent: calling it on
// a live or connecting session does nothing, so the supervisor can invoke
// it on every market check.
func (s *Session) Connect(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateDisconnected || s.fatal {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.intentional = false
	s.mu.Unlock()

	go s.run(ctx)
}

// Close tears the session down without triggering a reconnect. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.intentional = true
	s.state = StateClosing
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (s *Session) run(ctx context.Context) {
	for {
		err := s.runOnce(ctx)

		s.mu.Lock()
		s.conn = nil
		done := ctx.Err() != nil || s.intentional || s.fatal
		if done {
			s.state = StateDisconnected
		} else {
			// Stay in CONNECTING through the backoff wait so a
			// concurrent Connect cannot start a second run loop.
			s.state = StateConnecting
		}
		s.mu.Unlock()

		if done {
			if err != nil && !s.isIntentional() {
				s.log.WithError(err).Error("session terminated")
			}
			return
		}
		s.log.WithError(err).Warn("stream connection lost")

		if !s.waitBeforeReconnect(ctx) {
			s.mu.Lock()
			s.state = StateDisconnected
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		if s.intentional {
			s.state = StateDisconnected
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

func (s *Session) runOnce(ctx context.Context) error {
	conn, err := s.dial(ctx, s.url)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.url, err)
	}

	s.mu.Lock()
	if s.intentional {
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.state = StateAuthenticating
	s.mu.Unlock()

	if err := s.writeJSON(authFrame{Action: "auth", Key: s.cfg.APIKey, Secret: s.cfg.APISecret}); err != nil {
		conn.Close()
		return fmt.Errorf("sending auth: %w", err)
	}

	stopHeartbeat := make(chan struct{})
	go s.heartbeat(ctx, stopHeartbeat)
	defer close(stopHeartbeat)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.isIntentional() {
				return nil
			}
			return err
		}
		s.handleRaw(ctx, data)
		if s.isFatal() {
			conn.Close()
			return fmt.Errorf("unrecoverable stream error")
		}
	}
}

// handleRaw accepts both a single frame object and an array of frames.
func (s *Session) handleRaw(ctx context.Context, data []byte) {
	trimmed := data
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\n' || trimmed[0] == '\t') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) == 0 {
		return
	}

	if trimmed[0] == '[' {
		var frames []frame
		if err := json.Unmarshal(trimmed, &frames); err != nil {
			s.log.WithError(err).Warn("dropping unparseable stream message")
			return
		}
		for i := range frames {
			s.handleFrame(ctx, &frames[i])
		}
		return
	}

	var f frame
	if err := json.Unmarshal(trimmed, &f); err != nil {
		s.log.WithError(err).Warn("dropping unparseable stream message")
		return
	}
	s.handleFrame(ctx, &f)
}

func (s *Session) handleFrame(ctx context.Context, f *frame) {
	switch f.Type {
	case frameSuccess:
		s.handleSuccess(f)
	case frameError:
		s.handleError(f)
	case frameSubscription:
		s.log.WithField("msg", f.Msg).Debug("subscription confirmed")
	case frameBar, "bar":
		if s.onTick != nil {
			s.onTick(f.tick())
		}
	case frameTradeUpdate:
		s.handleTradeUpdate(f)
	default:
		s.log.WithField("type", f.Type).Debug("ignoring unknown frame type")
	}
}

func (s *Session) handleSuccess(f *frame) {
	switch f.Msg {
	case "connected":
		s.log.Debug("stream connected, awaiting auth result")
	case "authenticated":
		if err := s.writeJSON(s.subFrame); err != nil {
			s.log.WithError(err).Error("failed to send subscribe frame")
			return
		}
		s.mu.Lock()
		s.state = StateSubscribed
		s.mu.Unlock()
		s.retryWait.Reset()
		s.log.Info("stream authenticated and subscribed")
	default:
		s.log.WithField("msg", f.Msg).Debug("stream success")
	}
}

func (s *Session) handleError(f *frame) {
	switch f.Code {
	case codeNotAuthenticated, codeAlreadyConnected:
		s.log.WithFields(logger.Fields{"code": f.Code, "msg": f.Msg}).
			Error("unrecoverable stream error, closing channel for good")
		s.notifier.Send("🚨 " + s.name + " stream rejected the session (code " +
			fmt.Sprint(f.Code) + "): " + f.Msg + ". Not reconnecting.")
		s.mu.Lock()
		s.fatal = true
		s.mu.Unlock()
	default:
		s.log.WithFields(logger.Fields{"code": f.Code, "msg": f.Msg}).
			Warn("stream error")
	}
}

func (s *Session) handleTradeUpdate(f *frame) {
	if s.onTrade == nil || f.Trade == nil {
		return
	}
	switch f.Event {
	case "fill", "partial_fill":
		s.onTrade(f.tradeEvent())
	default:
		s.log.WithField("event", f.Event).Debug("ignoring non-fill trade update")
	}
}

// waitBeforeReconnect sleeps the backoff delay, or, when the market is
// closed, until the next open. Returns false when the context ended.
func (s *Session) waitBeforeReconnect(ctx context.Context) bool {
	closed, err := s.clock.IsMarketClosed(ctx)
	if err == nil && closed {
		nextOpen, err := s.clock.GetNextMarketOpen(ctx)
		if err == nil {
			wait := nextOpen.Sub(s.now())
			if wait > 0 {
				s.log.WithField("next_open", nextOpen).
					Info("market closed, suspending stream until next open")
				if !s.sleep(ctx, wait) {
					return false
				}
			}
			s.retryWait.Reset()
			return ctx.Err() == nil
		}
		s.log.WithError(err).Warn("could not fetch next market open, falling back to backoff")
	}

	delay := s.retryWait.Next()
	s.log.WithField("delay", delay).Info("reconnecting after backoff")
	return s.sleep(ctx, delay)
}

func (s *Session) heartbeat(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeJSON(pingFrame{Action: "ping"}); err != nil {
				return
			}
		}
	}
}

func (s *Session) writeJSON(v interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no live connection")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (s *Session) isIntentional() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intentional
}

func (s *Session) isFatal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}
