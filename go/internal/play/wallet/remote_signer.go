package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mcdev12/playtime/go/clients"
	"github.com/rs/zerolog/log"
)

// RemoteSigner is a Provider backed by an Octez-style remote signer.
//
//	GET  /keys/<address>  -> {"public_key": "edpk..."}
//	POST /keys/<address>  "<hex bytes>" -> {"signature": "edsig..."}
type RemoteSigner struct {
	client  *clients.BaseClient
	address string
}

// NewRemoteSigner creates a provider for address served by the signer at baseURL.
func NewRemoteSigner(baseURL, address string, timeout time.Duration) *RemoteSigner {
	client := clients.NewBaseClient(strings.TrimRight(baseURL, "/"))
	client.SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &RemoteSigner{
		client:  client,
		address: address,
	}
}

type publicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type signatureResponse struct {
	Signature string `json:"signature"`
}

// RequestPermissions looks up the public key of the configured address.
func (s *RemoteSigner) RequestPermissions(ctx context.Context) (*Permissions, error) {
	if s.address == "" {
		return nil, &Error{Kind: KindDeclined, Description: "no wallet address configured"}
	}

	body, err := s.client.Get(ctx, "/keys/"+s.address)
	if err != nil {
		return nil, classify(err, KindDeclined)
	}

	var resp publicKeyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode public key response: %w", err)
	}
	if resp.PublicKey == "" {
		return nil, &Error{Kind: KindDeclined, Description: "signer returned no public key"}
	}

	log.Debug().
		Str("address", s.address).
		Msg("remote signer granted permissions")

	return &Permissions{
		AccountInfo: AccountInfo{PublicKey: resp.PublicKey},
		Address:     s.address,
	}, nil
}

// RequestSign signs message with the key of address.
func (s *RemoteSigner) RequestSign(ctx context.Context, address, message string) (*SignResult, error) {
	payload, err := json.Marshal(PackMessage(message))
	if err != nil {
		return nil, fmt.Errorf("encode sign request: %w", err)
	}

	body, err := s.client.Post(ctx, "/keys/"+address, bytes.NewReader(payload))
	if err != nil {
		return nil, classify(err, KindAborted)
	}

	var resp signatureResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode signature response: %w", err)
	}

	return &SignResult{Signature: resp.Signature}, nil
}

// classify maps signer failures onto wallet error kinds. A refusal by the
// signer becomes rejected, a transport failure becomes unavailable, anything
// else is returned unchanged.
func classify(err error, rejected ErrorKind) error {
	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			desc := strings.TrimSpace(string(statusErr.Body))
			if desc == "" {
				desc = "request rejected by signer"
			}
			return &Error{Kind: rejected, Description: desc, Err: err}
		case http.StatusNotFound:
			return &Error{Kind: KindDeclined, Description: "unknown key", Err: err}
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Kind: KindUnavailable, Description: "signer unreachable", Err: err}
}
