package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/playtime/go/internal/play/join"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the audit publisher
type Config struct {
	URL           string
	SubjectPrefix string
	// StreamName enables JetStream publishing when set. Empty publishes on
	// core NATS with no persistence.
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	PublishTimeout time.Duration
	MaxAge         time.Duration
}

// DefaultConfig returns the default audit configuration
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		SubjectPrefix:  "playtime.joins",
		MaxReconnects:  -1, // Infinite
		ReconnectWait:  2 * time.Second,
		PublishTimeout: 5 * time.Second,
		MaxAge:         7 * 24 * time.Hour,
	}
}

type publishFunc func(ctx context.Context, msg *nats.Msg) error

// Publisher sends every finished join attempt to NATS.
type Publisher struct {
	nc      *nats.Conn
	config  Config
	publish publishFunc
}

// Connect dials NATS and, when a stream is configured, makes sure it exists.
func Connect(ctx context.Context, cfg Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("playtime-client"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	p := &Publisher{nc: nc, config: cfg}
	p.publish = func(_ context.Context, msg *nats.Msg) error {
		return nc.PublishMsg(msg)
	}

	if cfg.StreamName != "" {
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}
		if err := ensureStream(ctx, js, cfg); err != nil {
			nc.Close()
			return nil, fmt.Errorf("ensure stream: %w", err)
		}
		p.publish = func(ctx context.Context, msg *nats.Msg) error {
			_, err := js.PublishMsg(ctx, msg,
				jetstream.WithMsgID(msg.Header.Get("Attempt-ID")),
				jetstream.WithExpectStream(cfg.StreamName),
			)
			return err
		}
	}

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("subject_prefix", cfg.SubjectPrefix).
		Str("stream", cfg.StreamName).
		Msg("audit publisher connected")
	return p, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, cfg Config) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Playtime join attempts",
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Storage:     jetstream.FileStorage,
	})
	return err
}

// Record publishes a to <prefix>.<outcome>. Failures are logged, never
// returned: auditing must not affect the handshake.
func (p *Publisher) Record(ctx context.Context, a join.Attempt) {
	msg, err := p.message(a)
	if err != nil {
		log.Error().Err(err).Str("attempt_id", a.ID).Msg("failed to encode attempt")
		return
	}

	// the handshake context may already be done
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.PublishTimeout)
	defer cancel()

	if err := p.publish(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("subject", msg.Subject).
			Str("attempt_id", a.ID).
			Msg("failed to publish attempt")
		return
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("attempt_id", a.ID).
		Msg("published attempt")
}

func (p *Publisher) message(a join.Attempt) (*nats.Msg, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal attempt: %w", err)
	}
	return &nats.Msg{
		Subject: fmt.Sprintf("%s.%s", p.config.SubjectPrefix, a.Outcome),
		Data:    data,
		Header: nats.Header{
			"Attempt-ID": []string{a.ID},
			"Outcome":    []string{a.Outcome},
		},
	}, nil
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}
