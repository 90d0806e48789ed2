package wallet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSignerServer(t *testing.T, signStatus int, signBody string) (*httptest.Server, *string) {
	t.Helper()
	var signed string
	mux := http.NewServeMux()
	mux.HandleFunc("/keys/tz1abc", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"public_key":"edpkTest"}`))
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(body, &signed))
			w.WriteHeader(signStatus)
			w.Write([]byte(signBody))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &signed
}

func TestRemoteSignerPermissions(t *testing.T) {
	srv, _ := newSignerServer(t, http.StatusOK, `{}`)
	signer := NewRemoteSigner(srv.URL+"/", "tz1abc", time.Second)

	perms, err := signer.RequestPermissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "edpkTest", perms.AccountInfo.PublicKey)
	assert.Equal(t, "tz1abc", perms.Address)
}

func TestRemoteSignerUnknownKey(t *testing.T) {
	srv, _ := newSignerServer(t, http.StatusOK, `{}`)
	signer := NewRemoteSigner(srv.URL, "tz1missing", time.Second)

	_, err := signer.RequestPermissions(context.Background())
	assert.Equal(t, KindDeclined, KindOf(err))
}

func TestRemoteSignerNoAddress(t *testing.T) {
	signer := NewRemoteSigner("http://127.0.0.1:1", "", time.Second)

	_, err := signer.RequestPermissions(context.Background())
	assert.Equal(t, KindDeclined, KindOf(err))
}

func TestRemoteSignerSign(t *testing.T) {
	srv, signed := newSignerServer(t, http.StatusOK, `{"signature":"edsigXYZ"}`)
	signer := NewRemoteSigner(srv.URL, "tz1abc", time.Second)

	res, err := signer.RequestSign(context.Background(), "tz1abc", "hi")
	require.NoError(t, err)
	assert.Equal(t, "edsigXYZ", res.Signature)
	assert.Equal(t, PackMessage("hi"), *signed)
}

func TestRemoteSignerSignRejected(t *testing.T) {
	srv, _ := newSignerServer(t, http.StatusForbidden, "Aborted by user\n")
	signer := NewRemoteSigner(srv.URL, "tz1abc", time.Second)

	_, err := signer.RequestSign(context.Background(), "tz1abc", "hi")
	desc, ok := IsAborted(err)
	assert.True(t, ok)
	assert.Equal(t, "Aborted by user", desc)
}

func TestRemoteSignerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	signer := NewRemoteSigner(url, "tz1abc", time.Second)
	_, err := signer.RequestSign(context.Background(), "tz1abc", "hi")
	assert.Equal(t, KindUnavailable, KindOf(err))
}
