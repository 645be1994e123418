package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadMotionSendsBasicAuthAndBody(t *testing.T) {
	var gotUser, gotPass string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"pending": 2})
	}))
	defer srv.Close()

	c := New(srv.URL, "alice_username01", "secretpassword1")
	pending, err := c.UploadMotion(context.Background(), "group1", "video_1.bin", []byte("record-bytes"))
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
	assert.Equal(t, "alice_username01", gotUser)
	assert.Equal(t, "secretpassword1", gotPass)
	assert.Equal(t, []byte("record-bytes"), gotBody)
}

func TestLockoutStatusMapsToErrLockedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "u", "p")
	_, err := c.FetchMotion(context.Background(), "g", "f")
	assert.ErrorIs(t, err, ErrLockedOut)
}

func TestWaitLivestreamStartReadsFirstDataLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": comment\n\ndata: 42\n\n"))
	}))
	defer srv.Close()

	c := New(srv.URL, "u", "p")
	epoch, err := c.WaitLivestreamStart(context.Background(), "cam1")
	require.NoError(t, err)
	assert.Equal(t, "42", epoch)
}

func TestWaitCommandDecodesBase64Payload(t *testing.T) {
	payload := []byte("config-command-bytes")
	encoded := base64.StdEncoding.EncodeToString(payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: " + encoded + "\n\n"))
	}))
	defer srv.Close()

	c := New(srv.URL, "u", "p")
	got, err := c.WaitCommand(context.Background(), "cam1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestPairRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req PairRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok1", req.PairingToken)
		assert.Equal(t, PairRolePhone, req.Role)
		_ = json.NewEncoder(w).Encode(PairResponse{Status: PairStatusPaired})
	}))
	defer srv.Close()

	c := New(srv.URL, "u", "p")
	resp, err := c.Pair(context.Background(), "tok1", PairRolePhone)
	require.NoError(t, err)
	assert.Equal(t, PairStatusPaired, resp.Status)
}
