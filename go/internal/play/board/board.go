package board

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mcdev12/playtime/go/internal/play/countdown"
	"github.com/mcdev12/playtime/go/internal/play/notify"
	"github.com/mcdev12/playtime/go/internal/play/state"
	"github.com/mcdev12/playtime/go/internal/play/transport"
	"github.com/rs/zerolog/log"
)

// MsgGameStarted is shown when the server starts the round.
const MsgGameStarted = "Game started"

// Events is the inbound socket surface the board listens on.
type Events interface {
	On(event string, h transport.Handler) func()
}

// Joiner starts the join handshake.
type Joiner interface {
	Join(ctx context.Context) error
}

// Board is the hosting view: it owns the START_GAME listener and the
// countdown for as long as it is mounted, and renders the room as text.
type Board struct {
	out       io.Writer
	state     state.Reader
	events    Events
	countdown *countdown.Presenter
	notifier  notify.Notifier
	joiner    Joiner
	loc       *time.Location

	mu         sync.Mutex
	showDetail bool
	lastStart  *time.Time
	lastFrame  string
}

// Option customizes a Board
type Option func(*Board)

// WithLocation sets the zone start times are displayed in.
func WithLocation(loc *time.Location) Option {
	return func(b *Board) {
		b.loc = loc
	}
}

// New creates a board
func New(out io.Writer, reader state.Reader, events Events, presenter *countdown.Presenter, notifier notify.Notifier, joiner Joiner, opts ...Option) *Board {
	b := &Board{
		out:       out,
		state:     reader,
		events:    events,
		countdown: presenter,
		notifier:  notifier,
		joiner:    joiner,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mount attaches the board to its collaborators. The returned function
// tears everything down; it stops the countdown before returning and
// removes each listener exactly once, however often it is called.
func (b *Board) Mount(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)

	offStart := b.events.On(transport.EventStartGame, func(data json.RawMessage) {
		log.Info().Str("message", string(data)).Msg("game started")
		b.notifier.Success(MsgGameStarted)
	})

	// the countdown restarts from the current start time on every mount
	b.mu.Lock()
	b.lastStart = nil
	b.mu.Unlock()
	b.countdown.Reset()

	b.countdown.OnChange(func(int) { b.Render() })
	offState := b.state.Subscribe(b.onState)
	b.onState(b.state.Snapshot())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.countdown.Run(ctx)
	}()

	log.Debug().Msg("board mounted")

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			offState()
			offStart()
			b.countdown.OnChange(nil)
			log.Debug().Msg("board unmounted")
		})
	}
}

// Join triggers the handshake and redraws afterwards.
func (b *Board) Join(ctx context.Context) error {
	defer b.Render()
	return b.joiner.Join(ctx)
}

// ShowDetail opens or closes the room information view.
func (b *Board) ShowDetail(show bool) {
	b.mu.Lock()
	b.showDetail = show
	b.mu.Unlock()
	b.Render()
}

// Render writes the board if it differs from what was last written.
func (b *Board) Render() {
	snap := b.state.Snapshot()
	lines := Lines(snap, b.countdown.Remaining(), b.loc)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.showDetail {
		lines = append(lines, "")
		lines = append(lines, DetailLines(snap, b.loc)...)
	}
	frame := strings.Join(lines, "\n") + "\n"
	if frame == b.lastFrame {
		return
	}
	b.lastFrame = frame
	io.WriteString(b.out, "\n"+frame)
}

func (b *Board) onState(s state.RoomState) {
	b.mu.Lock()
	changed := !sameTime(b.lastStart, s.StartTime)
	b.lastStart = s.StartTime
	b.mu.Unlock()

	switch {
	case !changed:
	case s.StartTime == nil:
		b.countdown.Reset()
	default:
		b.countdown.OnStartTime(s.StartTime)
	}
	b.Render()
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
