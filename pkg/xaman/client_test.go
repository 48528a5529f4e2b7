package xaman

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/drippyfi/dualchain-middleware/pkg/app/errors"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{APIKey: "test-key", BaseURL: baseURL},
		zap.NewNop(), Options{PollInterval: 5 * time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "account reported directly", raw: `{"me":{"account":"rDirect"}}`, want: "rDirect"},
		{name: "account in sub field", raw: `{"me":{"sub":"rSub"}}`, want: "rSub"},
		{name: "no session", raw: `{}`, want: ""},
		{name: "empty me object", raw: `{"me":{}}`, want: ""},
		{name: "unknown field rejected", raw: `{"me":{"account":"rX"},"surprise":1}`, wantErr: true},
		{name: "not an object", raw: `[1,2]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeState([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.CategoryDecode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeStateFromJWT(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"sub": "rFromToken"}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	got, err := decodeState([]byte(`{"jwt":"` + token + `"}`))
	require.NoError(t, err)
	assert.Equal(t, "rFromToken", got)

	_, err = decodeState([]byte(`{"jwt":"not-a-token"}`))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDecode))
}

func TestDisabledClient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, zap.NewNop(), Options{})
	require.NoError(t, err)

	assert.False(t, c.Enabled())
	assert.True(t, c.Ready(), "disabled client is ready without restoration")

	account, err := c.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.Empty(t, account)

	_, err = c.Sign(context.Background(), TxIntent{"TransactionType": "TrustSet"})
	assert.True(t, apperrors.Is(err, apperrors.CategoryConfigAbsent))

	require.NoError(t, c.Logout(context.Background()))
	require.NoError(t, c.ForgetMe(context.Background()))
	assert.Zero(t, calls.Load(), "disabled client must not reach the agent")
}

func TestRestoreSessionRunsOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/state", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		calls.Add(1)
		_, _ = w.Write([]byte(`{"me":{"account":"rRestored"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	assert.False(t, c.Ready())

	account, err := c.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rRestored", account)
	assert.True(t, c.Ready())

	account, err = c.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rRestored", account)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRestoreSessionAgentFailureStillReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.RestoreSession(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryAgent))
	assert.True(t, c.Ready(), "restoration failure must not leave the session stuck")
}

func TestSignHappyPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /payload", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"uuid":"payload-1","next":{"always":"https://xaman.app/sign/payload-1"}}`))
	})
	var polls atomic.Int32
	mux.HandleFunc("GET /payload/payload-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			_, _ = w.Write([]byte(`{"meta":{"resolved":false}}`))
			return
		}
		_, _ = w.Write([]byte(`{"meta":{"resolved":true,"signed":true},"response":{"txid":"ABCDEF","account":"rSigner"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	outcome, err := c.Sign(context.Background(), TxIntent{"TransactionType": "TrustSet"})
	require.NoError(t, err)
	assert.True(t, outcome.Signed)
	assert.Equal(t, "ABCDEF", outcome.TxID)
	assert.GreaterOrEqual(t, polls.Load(), int32(2), "pending statuses keep the wait alive")
}

func TestSignRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /payload", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uuid":"payload-2"}`))
	})
	mux.HandleFunc("GET /payload/payload-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"resolved":true,"signed":false}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	outcome, err := c.Sign(context.Background(), TxIntent{"TransactionType": "TrustSet"})
	require.NoError(t, err)
	assert.False(t, outcome.Signed)
	assert.Empty(t, outcome.TxID)
}

func TestSignAgentFailureIsNegativeOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	outcome, err := c.Sign(context.Background(), TxIntent{"TransactionType": "TrustSet"})
	require.NoError(t, err, "agent failure resolves the attempt, it does not error")
	assert.False(t, outcome.Signed)
}

func TestSignCanceledWait(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /payload", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uuid":"payload-3"}`))
	})
	mux.HandleFunc("GET /payload/payload-3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"resolved":false}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestClient(t, srv.URL)
	_, err := c.Sign(ctx, TxIntent{"TransactionType": "TrustSet"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
