package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrEmptySignature is returned when a provider answers without a signature.
var ErrEmptySignature = errors.New("wallet returned an empty signature")

// Connector obtains and caches the wallet session for the process.
type Connector struct {
	provider Provider

	mu      sync.Mutex
	session *Session
}

// NewConnector creates a connector on top of a provider
func NewConnector(provider Provider) *Connector {
	return &Connector{provider: provider}
}

// Connect returns the cached session, or asks the provider for permissions
// when no address is cached yet. A rejected or empty permission response is
// reported as a KindDeclined error; nothing is retried.
func (c *Connector) Connect(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.Address != "" {
		return *c.session, nil
	}

	perms, err := c.provider.RequestPermissions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("wallet permission request failed")
		if KindOf(err) != 0 {
			return Session{}, err
		}
		return Session{}, &Error{Kind: KindDeclined, Description: "permission request rejected", Err: err}
	}
	if perms == nil {
		return Session{}, &Error{Kind: KindDeclined, Description: "no permissions granted"}
	}

	session := Session{
		PublicKey: perms.AccountInfo.PublicKey,
		Address:   perms.Address,
	}
	if session.Address != "" {
		c.session = &session
		log.Info().
			Str("address", session.Address).
			Msg("wallet connected")
	}

	return session, nil
}

// Session returns the cached session if there is one.
func (c *Connector) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Disconnect forgets the cached session so the next Connect prompts again.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		log.Info().Str("address", c.session.Address).Msg("wallet disconnected")
	}
	c.session = nil
}

// Sign asks the provider to sign message on behalf of address.
func (c *Connector) Sign(ctx context.Context, address, message string) (*SignResult, error) {
	signed, err := c.provider.RequestSign(ctx, address, message)
	if err != nil {
		return nil, err
	}
	if signed == nil || signed.Signature == "" {
		return nil, fmt.Errorf("sign for %s: %w", address, ErrEmptySignature)
	}
	return signed, nil
}
