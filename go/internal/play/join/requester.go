package join

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/playtime/go/internal/play/notify"
	"github.com/mcdev12/playtime/go/internal/play/state"
	"github.com/mcdev12/playtime/go/internal/play/transport"
	"github.com/mcdev12/playtime/go/internal/play/wallet"
	"github.com/rs/zerolog/log"
)

// Wallet is what the handshake needs from the wallet connector.
type Wallet interface {
	Connect(ctx context.Context) (wallet.Session, error)
	Sign(ctx context.Context, address, message string) (*wallet.SignResult, error)
}

// Transport is the outbound side of the socket.
type Transport interface {
	Connected() bool
	Emit(event string, data any) error
}

// State reads the room mirror and writes the loading flag, nothing else.
type State interface {
	state.LoadingWriter
	Snapshot() state.RoomState
}

// Attempt describes one finished handshake run.
type Attempt struct {
	ID      string    `json:"id"`
	Address string    `json:"address,omitempty"`
	Outcome string    `json:"outcome"`
	Kind    string    `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

const (
	OutcomeJoined = "joined"
	OutcomeFailed = "failed"
)

// Recorder receives every finished attempt.
type Recorder interface {
	Record(ctx context.Context, a Attempt)
}

// Phase of the handshake
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseSigning
	PhaseEmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseSigning:
		return "signing"
	case PhaseEmitting:
		return "emitting"
	default:
		return "idle"
	}
}

// Config holds the message constants and the optional sign bound.
type Config struct {
	Tag    string
	Domain string
	// SignTimeout bounds the wallet signing call. Zero waits forever.
	SignTimeout time.Duration
}

// DefaultConfig returns the production message constants
func DefaultConfig() Config {
	return Config{
		Tag:    DefaultTag,
		Domain: DefaultDomain,
	}
}

// Requester runs the connect -> sign -> emit handshake.
type Requester struct {
	config    Config
	wallet    Wallet
	transport Transport
	state     State
	notifier  notify.Notifier
	clock     clockwork.Clock
	recorder  Recorder

	running atomic.Bool
	phase   atomic.Int32
}

// Option customizes a Requester
type Option func(*Requester)

// WithClock sets the clock used for message timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Requester) {
		r.clock = clock
	}
}

// WithRecorder publishes every finished attempt to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Requester) {
		r.recorder = rec
	}
}

// NewRequester creates a join requester
func NewRequester(config Config, w Wallet, t Transport, s State, n notify.Notifier, opts ...Option) *Requester {
	if config.Tag == "" {
		config.Tag = DefaultTag
	}
	if config.Domain == "" {
		config.Domain = DefaultDomain
	}
	r := &Requester{
		config:    config,
		wallet:    w,
		transport: t,
		state:     s,
		notifier:  n,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Phase returns where the current run is.
func (r *Requester) Phase() Phase {
	return Phase(r.phase.Load())
}

// Join runs the handshake once. It returns ErrBusy or ErrAlreadyJoined when
// the run is refused, a *Failure when it fails, and nil after exactly one
// JOIN has been emitted. The loading flag is cleared on every path.
func (r *Requester) Join(ctx context.Context) (err error) {
	snap := r.state.Snapshot()
	if snap.Joined() {
		return ErrAlreadyJoined
	}
	if snap.Loading || !r.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer r.running.Store(false)

	attempt := Attempt{ID: uuid.New().String()}
	logger := log.With().Str("attempt_id", attempt.ID).Logger()

	defer func() {
		r.state.SetLoading(false)
		r.setPhase(PhaseIdle)
		r.finish(ctx, attempt, err)
	}()

	// Fail before the wallet prompts for anything it could not deliver.
	if !r.transport.Connected() {
		return r.fail(KindTransportUnavailable, MsgServerUnavailable, errTransportDown)
	}
	r.state.SetLoading(true)

	r.setPhase(PhaseConnecting)
	session, err := r.wallet.Connect(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("wallet connect failed")
		kind := KindUserDeclined
		if wallet.KindOf(err) == wallet.KindUnavailable {
			kind = KindUnknownFailure
		}
		return r.fail(kind, MsgWalletConnectFailed, err)
	}
	if session.Address == "" {
		return r.fail(KindUserDeclined, MsgWalletMissing, errNoAddress)
	}
	attempt.Address = session.Address

	if !r.transport.Connected() {
		return r.fail(KindTransportUnavailable, MsgServerUnavailable, errTransportDown)
	}

	r.setPhase(PhaseSigning)
	message := CanonicalMessage(r.config.Tag, r.config.Domain, r.clock.Now(), session.Address)
	signed, err := r.sign(ctx, session.Address, message)
	if err != nil {
		return r.signFailure(err)
	}

	r.setPhase(PhaseEmitting)
	encoded, err := Payload{
		Network:   NetworkTez,
		PublicKey: session.PublicKey,
		Address:   session.Address,
		Message:   message,
		Signature: signed.Signature,
	}.Encode()
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode join payload")
		return r.fail(KindUnknownFailure, MsgSomethingWentWrong, err)
	}

	if err := r.transport.Emit(transport.EventJoin, encoded); err != nil {
		logger.Error().Err(err).Msg("failed to emit join")
		return r.fail(KindTransportUnavailable, MsgServerUnavailable, err)
	}

	logger.Info().
		Str("address", session.Address).
		Msg("join request sent")
	return nil
}

func (r *Requester) sign(ctx context.Context, address, message string) (*wallet.SignResult, error) {
	if r.config.SignTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.SignTimeout)
		defer cancel()
	}
	return r.wallet.Sign(ctx, address, message)
}

func (r *Requester) signFailure(err error) error {
	if desc, ok := wallet.IsAborted(err); ok {
		if desc == "" {
			desc = MsgSomethingWentWrong
		}
		return r.fail(KindSigningAborted, desc, err)
	}

	log.Error().Err(err).Msg("signing failed")
	kind := KindUnknownFailure
	if wallet.KindOf(err) == wallet.KindDeclined {
		kind = KindUserDeclined
	}
	return r.fail(kind, MsgSomethingWentWrong, err)
}

// fail shows exactly one notification and builds the Failure.
func (r *Requester) fail(kind Kind, msg string, err error) error {
	r.notifier.Error(msg)
	return &Failure{Kind: kind, Message: msg, Err: err}
}

func (r *Requester) setPhase(p Phase) {
	r.phase.Store(int32(p))
}

func (r *Requester) finish(ctx context.Context, attempt Attempt, err error) {
	if r.recorder == nil {
		return
	}
	attempt.At = r.clock.Now()
	attempt.Outcome = OutcomeJoined
	if err != nil {
		attempt.Outcome = OutcomeFailed
		var f *Failure
		if errors.As(err, &f) {
			attempt.Kind = f.Kind.String()
			attempt.Message = f.Message
		}
	}
	r.recorder.Record(ctx, attempt)
}
