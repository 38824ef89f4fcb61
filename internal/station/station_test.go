package station

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/qr"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// frame carries the text the fake decoder will "find" in it.
type frame struct {
	*image.Gray
	text   string
	err    error
	after  time.Duration
	before func()
}

func codeFrame(text string) frame {
	return frame{Gray: image.NewGray(image.Rect(0, 0, 1, 1)), text: text}
}

func emptyFrame() frame {
	f := codeFrame("")
	f.err = qr.ErrNoCode
	return f
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(img image.Image) (string, error) {
	f := img.(frame)
	return f.text, f.err
}

func newFakeDecoder() (Decoder, error) { return fakeDecoder{}, nil }

type fakeSource struct {
	clock   *fakeClock
	frames  []frame
	openErr error
	// hold blocks Next on ctx instead of returning io.EOF when frames run out.
	hold  bool
	onEOF func()

	mu     sync.Mutex
	opened bool
	closed bool
}

func (s *fakeSource) Open(ctx context.Context) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSource) Next(ctx context.Context) (image.Image, error) {
	if len(s.frames) == 0 {
		if s.onEOF != nil {
			s.onEOF()
		}
		if s.hold {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, io.EOF
	}

	f := s.frames[0]
	s.frames = s.frames[1:]
	if f.before != nil {
		f.before()
	}
	s.clock.Advance(f.after)
	return f, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []models.CheckInRequest
	started chan struct{}
	release chan struct{}
	respond func(req models.CheckInRequest) (*models.CheckInResult, error)
	ctxErr  error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		started: make(chan struct{}, 16),
		respond: func(req models.CheckInRequest) (*models.CheckInResult, error) {
			return &models.CheckInResult{
				Success: true,
				Code:    models.CheckInCodeSuccess,
				Message: models.MessageCheckedIn,
				Data:    &models.CheckInData{Name: "Riya Sen"},
			}, nil
		},
	}
}

func (d *fakeDispatcher) CheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInResult, error) {
	d.mu.Lock()
	d.calls = append(d.calls, req)
	d.mu.Unlock()

	d.started <- struct{}{}
	if d.release != nil {
		<-d.release
	}

	d.mu.Lock()
	d.ctxErr = ctx.Err()
	d.mu.Unlock()
	return d.respond(req)
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []Report
	seen    chan struct{}
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{seen: make(chan struct{}, 16)}
}

func (r *recordingReporter) Report(rep Report) {
	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.mu.Unlock()
	r.seen <- struct{}{}
}

func (r *recordingReporter) all() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

func payloadText(t *testing.T, eventID, userID string) string {
	t.Helper()
	b, err := json.Marshal(models.TicketPayload{EventID: eventID, UserID: userID, Ticket: "T-" + userID, IssuedAt: 1760000000})
	require.NoError(t, err)
	return string(b)
}

func newTestController(source *fakeSource, d Dispatcher, r Reporter) *Controller {
	c := NewController(Config{EventID: "E1"}, source, newFakeDecoder, d, r)
	c.now = source.clock.Now
	return c
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 11, 7, 18, 0, 0, 0, time.UTC)}
}

func TestController_SustainedScanDispatchesOnce(t *testing.T) {
	clock := newClock()
	text := payloadText(t, "E1", "U1")

	frames := []frame{emptyFrame()}
	for i := 0; i < 10; i++ {
		f := codeFrame(text)
		f.after = 100 * time.Millisecond
		frames = append(frames, f)
	}
	source := &fakeSource{clock: clock, frames: frames}
	d := newFakeDispatcher()
	rep := newRecordingReporter()

	require.NoError(t, newTestController(source, d, rep).Run(context.Background()))

	assert.Equal(t, 1, d.callCount())
	assert.Equal(t, models.CheckInRequest{EventID: "E1", UserID: "U1"}, d.calls[0])

	reports := rep.all()
	require.Len(t, reports, 1)
	assert.Equal(t, OutcomeSuccess, reports[0].Outcome)
	assert.Equal(t, "Riya Sen", reports[0].Name)
	assert.True(t, source.isClosed())
}

func TestController_DispatchesAgainAfterCooldown(t *testing.T) {
	clock := newClock()
	rep := newRecordingReporter()

	second := codeFrame(payloadText(t, "E1", "U2"))
	second.after = 3 * time.Second
	second.before = func() { <-rep.seen }

	source := &fakeSource{clock: clock, frames: []frame{codeFrame(payloadText(t, "E1", "U1")), second}}
	d := newFakeDispatcher()

	require.NoError(t, newTestController(source, d, rep).Run(context.Background()))

	assert.Equal(t, 2, d.callCount())
	assert.Equal(t, "U2", d.calls[1].UserID)
}

func TestController_CooldownRestartsWhenDispatchCompletes(t *testing.T) {
	clock := newClock()
	rep := newRecordingReporter()
	d := newFakeDispatcher()
	d.release = make(chan struct{})

	// the first check-in takes 1.5s; a frame 2.5s after the scan is still
	// inside the cooldown that started when the result arrived
	second := codeFrame(payloadText(t, "E1", "U2"))
	second.before = func() {
		<-d.started
		clock.Advance(1500 * time.Millisecond)
		close(d.release)
		<-rep.seen
	}
	second.after = time.Second

	source := &fakeSource{clock: clock, frames: []frame{codeFrame(payloadText(t, "E1", "U1")), second}}

	require.NoError(t, newTestController(source, d, rep).Run(context.Background()))
	assert.Equal(t, 1, d.callCount())
}

func TestController_DropsDecodesWhileInFlight(t *testing.T) {
	clock := newClock()
	d := newFakeDispatcher()
	d.release = make(chan struct{})

	second := codeFrame(payloadText(t, "E1", "U2"))
	second.after = 5 * time.Second
	second.before = func() { <-d.started }

	source := &fakeSource{
		clock:  clock,
		frames: []frame{codeFrame(payloadText(t, "E1", "U1")), second},
		onEOF:  func() { close(d.release) },
	}
	rep := newRecordingReporter()

	require.NoError(t, newTestController(source, d, rep).Run(context.Background()))

	assert.Equal(t, 1, d.callCount())
	assert.Equal(t, "U1", d.calls[0].UserID)
}

func TestController_LocalRejections(t *testing.T) {
	unreadable := codeFrame("")
	unreadable.err = fmt.Errorf("%w: checksum", status.ErrInvalidQR)

	tests := []struct {
		name    string
		frame   frame
		message string
	}{
		{"Garbage text", codeFrame("https://example.com/not-a-ticket"), MessageInvalidFormat},
		{"Incomplete payload", codeFrame(`{"event_id":"E1"}`), MessageInvalidFormat},
		{"Unreadable code", unreadable, MessageInvalidFormat},
		{"Other event", codeFrame(payloadText(t, "E2", "U1")), MessageWrongEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{clock: newClock(), frames: []frame{tt.frame}}
			d := newFakeDispatcher()
			rep := newRecordingReporter()

			require.NoError(t, newTestController(source, d, rep).Run(context.Background()))

			assert.Equal(t, 0, d.callCount(), "no network call for local rejections")
			reports := rep.all()
			require.Len(t, reports, 1)
			assert.Equal(t, OutcomeError, reports[0].Outcome)
			assert.Equal(t, tt.message, reports[0].Message)
		})
	}
}

func TestController_RejectedCodeStartsCooldown(t *testing.T) {
	clock := newClock()
	valid := codeFrame(payloadText(t, "E1", "U1"))
	valid.after = time.Second

	source := &fakeSource{clock: clock, frames: []frame{codeFrame("garbage"), valid}}
	d := newFakeDispatcher()
	rep := newRecordingReporter()

	require.NoError(t, newTestController(source, d, rep).Run(context.Background()))
	assert.Equal(t, 0, d.callCount())
}

func TestController_TerminalFailures(t *testing.T) {
	t.Run("Camera", func(t *testing.T) {
		source := &fakeSource{clock: newClock(), openErr: errors.New("permission denied")}
		rep := newRecordingReporter()

		err := newTestController(source, newFakeDispatcher(), rep).Run(context.Background())
		assert.ErrorIs(t, err, ErrCameraUnavailable)
		require.Len(t, rep.all(), 1)
		assert.Equal(t, OutcomeError, rep.all()[0].Outcome)
	})

	t.Run("Decoder", func(t *testing.T) {
		source := &fakeSource{clock: newClock()}
		rep := newRecordingReporter()
		c := NewController(Config{EventID: "E1"}, source, func() (Decoder, error) {
			return nil, errors.New("no engine")
		}, newFakeDispatcher(), rep)

		err := c.Run(context.Background())
		assert.ErrorIs(t, err, ErrDecoderUnavailable)
		assert.False(t, source.opened, "camera is not acquired without a decoder")
		require.Len(t, rep.all(), 1)
	})
}

func TestController_StopLetsDispatchFinish(t *testing.T) {
	clock := newClock()
	d := newFakeDispatcher()
	d.release = make(chan struct{})

	source := &fakeSource{clock: clock, frames: []frame{codeFrame(payloadText(t, "E1", "U1"))}, hold: true}
	rep := newRecordingReporter()
	c := newTestController(source, d, rep)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-d.started
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned before the in-flight check-in finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(d.release)
	require.NoError(t, <-done)

	assert.NoError(t, d.ctxErr, "dispatch context must survive stop")
	assert.True(t, source.isClosed())
	assert.Equal(t, StateIdle, c.State())
	require.Len(t, rep.all(), 1)
}

func TestReportFor(t *testing.T) {
	firstScan := time.Date(2026, 11, 7, 17, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		res       *models.CheckInResult
		err       error
		outcome   Outcome
		message   string
		checkedIn time.Time
	}{
		{
			name:    "Success",
			res:     &models.CheckInResult{Success: true, Code: models.CheckInCodeSuccess, Message: models.MessageCheckedIn},
			outcome: OutcomeSuccess,
			message: models.MessageCheckedIn,
		},
		{
			name:    "Duplicate",
			res: &models.CheckInResult{
				Code:    models.CheckInCodeAlreadyCheckedIn,
				Message: models.MessageAlreadyCheckedIn,
				Data:    &models.CheckInData{Name: "Asha Verma", CheckedInAt: firstScan},
			},
			outcome:   OutcomeWarning,
			message:   models.MessageAlreadyCheckedIn,
			checkedIn: firstScan,
		},
		{
			name:    "Invalid ticket",
			res:     &models.CheckInResult{Code: models.CheckInCodeNotFound, Message: models.MessageInvalidTicket},
			outcome: OutcomeError,
			message: models.MessageInvalidTicket,
		},
		{
			name:    "Transient",
			err:     fmt.Errorf("checkIn: %w", status.ErrTransient),
			outcome: OutcomeRetry,
			message: MessageRetry,
		},
		{
			name:    "Grant rejected",
			err:     fmt.Errorf("checkIn: %w", status.ErrInvalidGrant),
			outcome: OutcomeError,
			message: MessageAccessDenied,
		},
		{
			name:    "Malformed response",
			err:     errors.New("checkIn: malformed server response"),
			outcome: OutcomeError,
			message: MessageFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reportFor(tt.res, tt.err)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.Equal(t, tt.message, r.Message)
			assert.True(t, tt.checkedIn.Equal(r.CheckedInAt), "checked in at %v", r.CheckedInAt)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "capturing", StateCapturing.String())
	assert.Equal(t, "cooldown", StateCooldown.String())
	assert.Equal(t, "unknown", State(42).String())
}
