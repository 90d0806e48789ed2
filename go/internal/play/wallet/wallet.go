package wallet

import (
	"context"
	"errors"
	"fmt"
)

// Session is the account a wallet granted access to. It lives for the
// process only and is never persisted.
type Session struct {
	PublicKey string `json:"publicKey"`
	Address   string `json:"address"`
}

// AccountInfo mirrors the account block of a Beacon permission response.
type AccountInfo struct {
	PublicKey string `json:"publicKey"`
}

// Permissions is what a provider returns when the user approves a connection.
type Permissions struct {
	AccountInfo AccountInfo `json:"accountInfo"`
	Address     string      `json:"address"`
}

// SignResult holds the signature produced by the wallet.
type SignResult struct {
	Signature string `json:"signature"`
}

// Provider is a Beacon-style signing agent.
type Provider interface {
	RequestPermissions(ctx context.Context) (*Permissions, error)
	RequestSign(ctx context.Context, address, message string) (*SignResult, error)
}

// ErrorKind tags the failure reported by a provider.
type ErrorKind int

const (
	KindDeclined ErrorKind = iota + 1
	KindAborted
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindDeclined:
		return "declined"
	case KindAborted:
		return "aborted"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure. Description is meant for the user.
type Error struct {
	Kind        ErrorKind
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wallet %s: %s: %v", e.Kind, e.Description, e.Err)
	}
	return fmt.Sprintf("wallet %s: %s", e.Kind, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a classified wallet error, or 0.
func KindOf(err error) ErrorKind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return 0
}

// IsAborted reports whether err is an aborted signing request and returns
// its description.
func IsAborted(err error) (string, bool) {
	var werr *Error
	if errors.As(err, &werr) && werr.Kind == KindAborted {
		return werr.Description, true
	}
	return "", false
}
