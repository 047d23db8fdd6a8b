package keypad

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/logging"
)

const (
	readBackoffInitial = 250 * time.Millisecond
	readBackoffMax     = 5 * time.Second
)

// Poller samples the keypad at a fixed interval and publishes de-duplicated
// key events. Read failures back off and retry; they never stop the poller.
type Poller struct {
	cfg    *config.Config
	reader Reader
	logger *slog.Logger
	events chan Event
	paused atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// PollerOption customizes poller construction.
type PollerOption func(*Poller)

// WithReader overrides the hardware reader, primarily for tests.
func WithReader(reader Reader) PollerOption {
	return func(p *Poller) {
		p.reader = reader
	}
}

// NewPoller constructs a poller for the configured keypad lines.
func NewPoller(cfg *config.Config, logger *slog.Logger, opts ...PollerOption) *Poller {
	poller := &Poller{
		cfg:    cfg,
		reader: NewGPIOReader(cfg),
		logger: logging.NewComponentLogger(logger, "keypad"),
		events: make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(poller)
	}
	return poller
}

// Events returns the channel key events are delivered on, in press order.
func (p *Poller) Events() <-chan Event {
	return p.events
}

// Start begins sampling until the context is canceled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.loop(pollCtx)
}

// Stop halts sampling and waits for the poll loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// SetPaused suspends or resumes event production without stopping the loop.
// Used when the input device disappears and reappears.
func (p *Poller) SetPaused(paused bool) {
	was := p.paused.Swap(paused)
	if was == paused {
		return
	}
	if paused {
		p.logger.Warn("keypad input paused",
			logging.String(logging.FieldEventType, "keypad_paused"),
			logging.String(logging.FieldImpact, "key presses are ignored until the device returns"))
	} else {
		p.logger.Info("keypad input resumed",
			logging.String(logging.FieldEventType, "keypad_resumed"))
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	interval := time.Duration(p.cfg.Keypad.PollIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var decoder Decoder
	backoff := readBackoffInitial
	failing := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if p.paused.Load() {
			decoder.Reset()
			continue
		}

		code, err := p.reader.ReadCode(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !failing {
				p.logger.Warn("keypad read failed, backing off",
					logging.Error(err),
					logging.String(logging.FieldEventType, "keypad_read_failed"),
					logging.String(logging.FieldErrorHint, "check GPIO exports and permissions"),
					logging.String(logging.FieldImpact, "key presses are dropped while the input is unreadable"))
				failing = true
			}
			decoder.Reset()
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= readBackoffMax {
				backoff = next
			}
			continue
		}
		if failing {
			p.logger.Info("keypad read recovered",
				logging.String(logging.FieldEventType, "keypad_read_recovered"))
			failing = false
			backoff = readBackoffInitial
		}

		event, ok := decoder.Feed(code)
		if !ok {
			continue
		}
		select {
		case p.events <- event:
		default:
			// Control loop is wedged; dropping beats blocking the sampler.
			p.logger.Warn("key event dropped, consumer not keeping up",
				logging.String("key", event.Key.String()),
				logging.String(logging.FieldEventType, "keypad_event_dropped"),
				logging.String(logging.FieldImpact, "one key press was lost"))
		}
	}
}
