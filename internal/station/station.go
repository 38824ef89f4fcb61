// Package station runs the scan station loop: capture frames, decode QR
// codes, throttle them with a cooldown and dispatch check-ins to the server.
package station

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/qr"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
)

const (
	DefaultCooldown        = 2 * time.Second
	DefaultDispatchTimeout = 10 * time.Second
)

const (
	MessageInvalidFormat = "Invalid QR code format"
	MessageWrongEvent    = "Ticket is for a different event"
	MessageRetry         = "Network error, please scan again"
	MessageAccessDenied  = "Access link invalid or expired"
	MessageFailed        = "Check-in failed"
)

var (
	// ErrCameraUnavailable and ErrDecoderUnavailable end a session. They are
	// reported to the operator and never retried.
	ErrCameraUnavailable  = errors.New("camera unavailable")
	ErrDecoderUnavailable = errors.New("qr decoder unavailable")
)

type State int

const (
	StateIdle State = iota
	StateCapturing
	StateDecoding
	StateDispatching
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateDecoding:
		return "decoding"
	case StateDispatching:
		return "dispatching"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeError   Outcome = "error"
	OutcomeRetry   Outcome = "retry"
)

// Report is one operator-visible line. CheckedInAt carries the original
// check-in time of a duplicate scan.
type Report struct {
	Outcome     Outcome
	Message     string
	Name        string
	CheckedInAt time.Time
	At          time.Time
}

// FrameSource is the camera. Next blocks until a frame is available and
// returns io.EOF once the source has no more frames.
type FrameSource interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Decoder turns a frame into raw QR text. It returns qr.ErrNoCode for frames
// without a code.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

type Dispatcher interface {
	CheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInResult, error)
}

type Reporter interface {
	Report(r Report)
}

type Config struct {
	EventID         string
	Cooldown        time.Duration
	DispatchTimeout time.Duration
}

type Controller struct {
	eventID         string
	cooldown        time.Duration
	dispatchTimeout time.Duration

	source     FrameSource
	newDecoder func() (Decoder, error)
	dispatcher Dispatcher
	reporter   Reporter
	now        func() time.Time

	mu            sync.Mutex
	state         State
	inFlight      bool
	cooldownUntil time.Time

	wg sync.WaitGroup
}

func NewController(cfg Config, source FrameSource, newDecoder func() (Decoder, error), dispatcher Dispatcher, reporter Reporter) *Controller {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = DefaultDispatchTimeout
	}

	return &Controller{
		eventID:         cfg.EventID,
		cooldown:        cfg.Cooldown,
		dispatchTimeout: cfg.DispatchTimeout,
		source:          source,
		newDecoder:      newDecoder,
		dispatcher:      dispatcher,
		reporter:        reporter,
		now:             time.Now,
		state:           StateIdle,
	}
}

// QRDecoder adapts qr.NewDecoder to the controller's decoder factory.
func QRDecoder() (Decoder, error) {
	d, err := qr.NewDecoder()
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run captures until ctx is cancelled or the source runs dry. The source is
// closed on every path out of Run, and Run waits for an in-flight check-in
// to finish before returning.
func (c *Controller) Run(ctx context.Context) error {
	dec, err := c.newDecoder()
	if err != nil {
		c.report(Report{Outcome: OutcomeError, Message: "QR decoder unavailable"})
		return fmt.Errorf("%w: %w", ErrDecoderUnavailable, err)
	}

	if err := c.source.Open(ctx); err != nil {
		c.report(Report{Outcome: OutcomeError, Message: "Camera unavailable"})
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	defer func() {
		if err := c.source.Close(); err != nil {
			slog.Error("c.source.Close()", "error", err)
		}
		c.wg.Wait()
		c.setState(StateIdle)
	}()

	slog.Info("Scan station started", "event_id", c.eventID, "cooldown", c.cooldown)
	c.setState(StateCapturing)

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := c.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.report(Report{Outcome: OutcomeError, Message: "Camera unavailable"})
			return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
		}

		c.setState(StateDecoding)
		text, err := dec.Decode(frame)
		if errors.Is(err, qr.ErrNoCode) {
			c.resume()
			continue
		}

		c.handleDecode(ctx, text, err)
		c.resume()
	}
}

// handleDecode applies the cooldown to one decoded code and either reports a
// local rejection or starts a dispatch.
func (c *Controller) handleDecode(ctx context.Context, text string, decodeErr error) {
	now := c.now()

	c.mu.Lock()
	if inFlight := c.inFlight; inFlight || now.Before(c.cooldownUntil) {
		c.mu.Unlock()
		slog.Debug("Decode dropped", "event_id", c.eventID, "in_flight", inFlight)
		return
	}
	c.cooldownUntil = now.Add(c.cooldown)
	c.state = StateCooldown
	c.mu.Unlock()

	if decodeErr != nil {
		c.report(Report{Outcome: OutcomeError, Message: MessageInvalidFormat})
		return
	}

	payload, err := qr.ParsePayload(text)
	if err != nil {
		c.report(Report{Outcome: OutcomeError, Message: MessageInvalidFormat})
		return
	}
	if payload.EventID != c.eventID {
		c.report(Report{Outcome: OutcomeError, Message: MessageWrongEvent})
		return
	}

	c.mu.Lock()
	c.inFlight = true
	c.state = StateDispatching
	c.mu.Unlock()

	c.wg.Add(1)
	go c.dispatch(ctx, payload)
}

// dispatch outlives ctx so a check-in already sent is not abandoned when
// the station stops.
func (c *Controller) dispatch(ctx context.Context, p models.TicketPayload) {
	defer c.wg.Done()

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.dispatchTimeout)
	defer cancel()

	res, err := c.dispatcher.CheckIn(dctx, models.CheckInRequest{
		EventID: p.EventID,
		UserID:  p.UserID,
	})
	if err != nil && !errors.Is(err, status.ErrTransient) {
		slog.Error("c.dispatcher.CheckIn()", "event_id", p.EventID, "user_id", p.UserID, "error", err)
	}

	c.mu.Lock()
	c.inFlight = false
	c.cooldownUntil = c.now().Add(c.cooldown)
	if c.state == StateDispatching {
		c.state = StateCooldown
	}
	c.mu.Unlock()

	c.report(reportFor(res, err))
}

func reportFor(res *models.CheckInResult, err error) Report {
	switch {
	case errors.Is(err, status.ErrTransient):
		return Report{Outcome: OutcomeRetry, Message: MessageRetry}
	case errors.Is(err, status.ErrInvalidGrant):
		return Report{Outcome: OutcomeError, Message: MessageAccessDenied}
	case err != nil || res == nil:
		return Report{Outcome: OutcomeError, Message: MessageFailed}
	}

	r := Report{Message: res.Message}
	if res.Data != nil {
		r.Name = res.Data.Name
	}

	switch {
	case res.Success:
		r.Outcome = OutcomeSuccess
	case res.Code == models.CheckInCodeAlreadyCheckedIn:
		r.Outcome = OutcomeWarning
		if res.Data != nil {
			r.CheckedInAt = res.Data.CheckedInAt
		}
	default:
		r.Outcome = OutcomeError
	}
	return r
}

// resume returns to capturing once nothing is in flight and the cooldown
// has elapsed.
func (c *Controller) resume() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.inFlight:
		c.state = StateDispatching
	case now.Before(c.cooldownUntil):
		c.state = StateCooldown
	default:
		c.state = StateCapturing
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) report(r Report) {
	if r.At.IsZero() {
		r.At = c.now()
	}
	if c.reporter != nil {
		c.reporter.Report(r)
	}
}
