package ds

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentialFile(t *testing.T, dir, username, password string) {
	t.Helper()
	require.Len(t, username, credentialFieldLen)
	require.Len(t, password, credentialFieldLen)
	require.NoError(t, os.WriteFile(filepath.Join(dir, username), []byte(username+password), 0o600))
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dataDir := t.TempDir()
	credDir := t.TempDir()
	writeCredentialFile(t, credDir, "aliceuser0001X", "secretpass0001")

	store, err := LoadCredentialStore(credDir)
	require.NoError(t, err)

	return NewServer(dataDir, store, nil), dataDir
}

func TestMotionUploadRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/group1/video_1.bin", bytes.NewReader([]byte("x")))
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMotionUploadFetchRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	body := []byte("encrypted-record-bytes")
	req := httptest.NewRequest(http.MethodPost, "/group1/video_1.bin", bytes.NewReader(body))
	req.SetBasicAuth("aliceuser0001X", "secretpass0001")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["pending"])

	fetchReq := httptest.NewRequest(http.MethodGet, "/group1/video_1.bin", nil)
	fetchReq.SetBasicAuth("aliceuser0001X", "secretpass0001")
	fetchRec := httptest.NewRecorder()
	s.echo.ServeHTTP(fetchRec, fetchReq)
	require.Equal(t, http.StatusOK, fetchRec.Code)
	assert.Equal(t, body, fetchRec.Body.Bytes())
}

func TestMotionUploadRejectsPathEscape(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/..%2Fescape/video_1.bin", bytes.NewReader([]byte("x")))
	req.SetBasicAuth("aliceuser0001X", "secretpass0001")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

// TestBruteForceLockout is spec.md section 8 scenario 5: 5 failed
// attempts within the window locks the IP out regardless of subsequent
// successful credentials.
func TestBruteForceLockout(t *testing.T) {
	s, _ := newTestServer(t)

	for i := 0; i < maxFailures; i++ {
		req := httptest.NewRequest(http.MethodGet, "/group1/f", nil)
		req.RemoteAddr = "203.0.113.5:1234"
		req.SetBasicAuth("aliceuser0001X", "wrongpass00001")
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/group1/f", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	req.SetBasicAuth("aliceuser0001X", "secretpass0001")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// TestPairRendezvous is spec.md section 8 scenario 4.
func TestPairRendezvous(t *testing.T) {
	s, _ := newTestServer(t)

	results := make(chan string, 2)
	go func() {
		results <- s.pairing.Rendezvous("T1", "phone")
	}()
	go func() {
		results <- s.pairing.Rendezvous("T1", "camera")
	}()

	first := <-results
	second := <-results
	assert.Equal(t, "paired", first)
	assert.Equal(t, "paired", second)

	third := s.pairing.Rendezvous("T1", "phone")
	assert.Equal(t, "expired", third)
}

func TestPairRejectsQuoteInToken(t *testing.T) {
	s, _ := newTestServer(t)
	status := s.pairing.Rendezvous(`bad"token`, "phone")
	assert.Equal(t, "invalid_token", status)
}
