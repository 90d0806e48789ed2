package join

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/playtime/go/internal/play/notify"
	"github.com/mcdev12/playtime/go/internal/play/state"
	"github.com/mcdev12/playtime/go/internal/play/transport"
	"github.com/mcdev12/playtime/go/internal/play/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWallet struct {
	mu           sync.Mutex
	session      wallet.Session
	connectErr   error
	connectCalls int
	signature    string
	signErr      error
	signCalls    int
	signed       string
	onSign       func(ctx context.Context) error
}

func (w *fakeWallet) Connect(ctx context.Context) (wallet.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connectCalls++
	return w.session, w.connectErr
}

func (w *fakeWallet) Sign(ctx context.Context, address, message string) (*wallet.SignResult, error) {
	w.mu.Lock()
	w.signCalls++
	w.signed = message
	onSign := w.onSign
	w.mu.Unlock()

	if onSign != nil {
		if err := onSign(ctx); err != nil {
			return nil, err
		}
	}
	if w.signErr != nil {
		return nil, w.signErr
	}
	return &wallet.SignResult{Signature: w.signature}, nil
}

type emitted struct {
	event string
	data  any
}

type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	emitErr   error
	emitted   []emitted
}

func (t *fakeTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *fakeTransport) Emit(event string, data any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.emitErr != nil {
		return t.emitErr
	}
	t.emitted = append(t.emitted, emitted{event, data})
	return nil
}

type memoryRecorder struct {
	attempts []Attempt
}

func (m *memoryRecorder) Record(ctx context.Context, a Attempt) {
	m.attempts = append(m.attempts, a)
}

type fixture struct {
	wallet    *fakeWallet
	transport *fakeTransport
	store     *state.Store
	notes     *notify.Memory
	clock     *clockwork.FakeClock
	recorder  *memoryRecorder
	requester *Requester
}

var joinTime = time.Date(2026, 10, 19, 18, 30, 5, 123_000_000, time.UTC)

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()
	f := &fixture{
		wallet: &fakeWallet{
			session:   wallet.Session{PublicKey: "edpkTest", Address: "tz1abc"},
			signature: "edsigTest",
		},
		transport: &fakeTransport{connected: true},
		store:     state.NewStore(),
		notes:     &notify.Memory{},
		clock:     clockwork.NewFakeClockAt(joinTime),
		recorder:  &memoryRecorder{},
	}
	f.requester = NewRequester(config, f.wallet, f.transport, f.store, f.notes,
		WithClock(f.clock), WithRecorder(f.recorder))
	return f
}

func TestCanonicalMessage(t *testing.T) {
	msg := CanonicalMessage(DefaultTag, DefaultDomain, joinTime, "tz1abc")
	assert.Equal(t,
		"Tezos Signed Message: playtime.com 2026-10-19T18:30:05.123Z playtime.com would like to join room with tz1abc",
		msg)
}

func TestFormatISOUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "2026-10-19T18:30:05.123Z", FormatISO(joinTime.In(loc)))
	assert.Equal(t, "2026-10-19T18:30:05.000Z", FormatISO(joinTime.Truncate(time.Second)))
}

func TestJoinSuccess(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.NoError(t, f.requester.Join(context.Background()))

	require.Len(t, f.transport.emitted, 1)
	sent := f.transport.emitted[0]
	assert.Equal(t, transport.EventJoin, sent.event)

	raw, ok := sent.data.(string)
	require.True(t, ok, "JOIN data must be a JSON string")
	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	want := CanonicalMessage(DefaultTag, DefaultDomain, joinTime, "tz1abc")
	assert.Equal(t, Payload{
		Network:   "tez",
		PublicKey: "edpkTest",
		Address:   "tz1abc",
		Message:   want,
		Signature: "edsigTest",
	}, payload)
	assert.Equal(t, want, f.wallet.signed)

	assert.Empty(t, f.notes.Entries())
	assert.False(t, f.store.Snapshot().Loading)
	assert.Equal(t, PhaseIdle, f.requester.Phase())
	require.Len(t, f.recorder.attempts, 1)
	assert.Equal(t, OutcomeJoined, f.recorder.attempts[0].Outcome)
	assert.Equal(t, "tz1abc", f.recorder.attempts[0].Address)
}

func TestJoinPayloadFieldOrder(t *testing.T) {
	encoded, err := Payload{"tez", "pk", "addr", "msg", "sig"}.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"network":"tez","publicKey":"pk","address":"addr","message":"msg","signature":"sig"}`, encoded)
}

func TestJoinTransportUnavailable(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.transport.connected = false

	var changes []state.RoomState
	f.store.Subscribe(func(s state.RoomState) { changes = append(changes, s) })

	err := f.requester.Join(context.Background())

	assert.Equal(t, KindTransportUnavailable, KindOf(err))
	assert.Empty(t, changes, "a refused run never touches loading")
	assert.Equal(t, 0, f.wallet.connectCalls)
	assert.Equal(t, 0, f.wallet.signCalls)
	assert.Empty(t, f.transport.emitted)
	assert.Equal(t, []string{MsgServerUnavailable}, f.notes.Errors())
	assert.False(t, f.store.Snapshot().Loading)
	require.Len(t, f.recorder.attempts, 1)
	assert.Equal(t, "transport_unavailable", f.recorder.attempts[0].Kind)
}

func TestJoinTransportDropsDuringConnect(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.wallet.connectErr = nil
	wrapped := &dropOnConnect{fakeWallet: f.wallet, transport: f.transport}
	f.requester.wallet = wrapped

	err := f.requester.Join(context.Background())

	assert.Equal(t, KindTransportUnavailable, KindOf(err))
	assert.Equal(t, 0, f.wallet.signCalls)
	assert.Empty(t, f.transport.emitted)
}

type dropOnConnect struct {
	*fakeWallet
	transport *fakeTransport
}

func (d *dropOnConnect) Connect(ctx context.Context) (wallet.Session, error) {
	d.transport.mu.Lock()
	d.transport.connected = false
	d.transport.mu.Unlock()
	return d.fakeWallet.Connect(ctx)
}

func TestJoinFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		kind    Kind
		message string
	}{
		{
			name: "connect declined",
			setup: func(f *fixture) {
				f.wallet.connectErr = &wallet.Error{Kind: wallet.KindDeclined, Description: "rejected"}
			},
			kind:    KindUserDeclined,
			message: MsgWalletConnectFailed,
		},
		{
			name: "signer unreachable on connect",
			setup: func(f *fixture) {
				f.wallet.connectErr = &wallet.Error{Kind: wallet.KindUnavailable, Description: "down"}
			},
			kind:    KindUnknownFailure,
			message: MsgWalletConnectFailed,
		},
		{
			name:    "no address",
			setup:   func(f *fixture) { f.wallet.session.Address = "" },
			kind:    KindUserDeclined,
			message: MsgWalletMissing,
		},
		{
			name: "signing aborted",
			setup: func(f *fixture) {
				f.wallet.signErr = &wallet.Error{Kind: wallet.KindAborted, Description: "The user aborted the request"}
			},
			kind:    KindSigningAborted,
			message: "The user aborted the request",
		},
		{
			name: "signing aborted without description",
			setup: func(f *fixture) {
				f.wallet.signErr = &wallet.Error{Kind: wallet.KindAborted}
			},
			kind:    KindSigningAborted,
			message: MsgSomethingWentWrong,
		},
		{
			name: "signing declined",
			setup: func(f *fixture) {
				f.wallet.signErr = &wallet.Error{Kind: wallet.KindDeclined, Description: "no"}
			},
			kind:    KindUserDeclined,
			message: MsgSomethingWentWrong,
		},
		{
			name:    "signing unknown error",
			setup:   func(f *fixture) { f.wallet.signErr = errors.New("ledger exploded") },
			kind:    KindUnknownFailure,
			message: MsgSomethingWentWrong,
		},
		{
			name:    "emit rejected",
			setup:   func(f *fixture) { f.transport.emitErr = transport.ErrNotConnected },
			kind:    KindTransportUnavailable,
			message: MsgServerUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			tt.setup(f)

			err := f.requester.Join(context.Background())

			var failure *Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.kind, failure.Kind)
			assert.Equal(t, tt.message, failure.Message)
			assert.Equal(t, []string{tt.message}, f.notes.Errors())
			assert.Empty(t, f.transport.emitted)
			assert.False(t, f.store.Snapshot().Loading)
			assert.Equal(t, PhaseIdle, f.requester.Phase())
			require.Len(t, f.recorder.attempts, 1)
			assert.Equal(t, OutcomeFailed, f.recorder.attempts[0].Outcome)
		})
	}
}

func TestJoinRefusedWhenAlreadyJoined(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	info, err := state.DecodeRoomInfo(json.RawMessage(`{"playerId":"p1"}`))
	require.NoError(t, err)
	f.store.ApplyRoomInfo(info)

	assert.ErrorIs(t, f.requester.Join(context.Background()), ErrAlreadyJoined)
	assert.Equal(t, 0, f.wallet.connectCalls)
	assert.Empty(t, f.notes.Entries())
	assert.Empty(t, f.recorder.attempts)
}

func TestJoinRefusedWhileLoading(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.store.SetLoading(true)

	assert.ErrorIs(t, f.requester.Join(context.Background()), ErrBusy)
	assert.Equal(t, 0, f.wallet.connectCalls)
	assert.True(t, f.store.Snapshot().Loading)
}

func TestJoinSingleFlight(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	signing := make(chan struct{})
	release := make(chan struct{})
	f.wallet.onSign = func(ctx context.Context) error {
		close(signing)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- f.requester.Join(context.Background()) }()

	<-signing
	assert.True(t, f.store.Snapshot().Loading)
	assert.Equal(t, PhaseSigning, f.requester.Phase())
	assert.ErrorIs(t, f.requester.Join(context.Background()), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, f.transport.emitted, 1)
	assert.False(t, f.store.Snapshot().Loading)
}

func TestJoinSignTimeout(t *testing.T) {
	config := DefaultConfig()
	config.SignTimeout = 10 * time.Millisecond
	f := newFixture(t, config)
	f.wallet.onSign = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	err := f.requester.Join(context.Background())

	assert.Equal(t, KindUnknownFailure, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{MsgSomethingWentWrong}, f.notes.Errors())
	assert.False(t, f.store.Snapshot().Loading)
}

func TestNewRequesterFillsDefaults(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.requester.Join(context.Background()))
	assert.Equal(t, CanonicalMessage(DefaultTag, DefaultDomain, joinTime, "tz1abc"), f.wallet.signed)
}
