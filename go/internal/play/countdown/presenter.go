package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Hidden is the remaining value before any start time is known.
const Hidden = -1

// Presenter derives the seconds left until a server-provided start time and
// ticks them down locally once per second.
type Presenter struct {
	clock clockwork.Clock

	mu       sync.Mutex
	remain   int
	onChange func(remain int)
}

// NewPresenter creates a presenter on clock
func NewPresenter(clock clockwork.Clock) *Presenter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Presenter{
		clock:  clock,
		remain: Hidden,
	}
}

// OnChange registers fn to be called whenever the remaining value changes.
func (p *Presenter) OnChange(fn func(remain int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Remaining returns the current remaining seconds. Negative means the start
// time is unknown or already past.
func (p *Presenter) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remain
}

// Visible reports whether the countdown should be shown.
func (p *Presenter) Visible() bool {
	return p.Remaining() >= 0
}

// OnStartTime recomputes the remaining seconds from start. A nil start keeps
// the current value.
func (p *Presenter) OnStartTime(start *time.Time) {
	if start == nil {
		return
	}
	remain := Remaining(*start, p.clock.Now())
	log.Debug().
		Time("start_time", *start).
		Int("remain_sec", remain).
		Msg("countdown recomputed")
	p.set(remain)
}

// Reset hides the countdown until the next start time.
func (p *Presenter) Reset() {
	p.set(Hidden)
}

// Tick decrements the remaining seconds while they are positive.
func (p *Presenter) Tick() {
	p.mu.Lock()
	if p.remain <= 0 {
		p.mu.Unlock()
		return
	}
	p.remain--
	remain, fn := p.remain, p.onChange
	p.mu.Unlock()

	if fn != nil {
		fn(remain)
	}
}

// Run ticks every second until ctx is cancelled.
func (p *Presenter) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.Tick()
		}
	}
}

func (p *Presenter) set(remain int) {
	p.mu.Lock()
	if p.remain == remain {
		p.mu.Unlock()
		return
	}
	p.remain = remain
	fn := p.onChange
	p.mu.Unlock()

	if fn != nil {
		fn(remain)
	}
}

// Remaining returns whole seconds from now until start, rounded down.
func Remaining(start, now time.Time) int {
	d := start.Sub(now)
	secs := d / time.Second
	if d%time.Second < 0 {
		secs--
	}
	return int(secs)
}
