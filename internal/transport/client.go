// Package transport implements the HTTP client side of the delivery
// service protocol (spec.md section 4.4): a small set of verbs plus
// server-sent events for push edges, all behind HTTP Basic auth.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/secluso/secluso/pkg/version"
)

// basicAuthTransport wraps an http.RoundTripper to attach HTTP Basic
// credentials to every outgoing request, mirroring how the reference
// stack wraps an http.Client's transport for bearer-token auth rather
// than setting headers at each call site.
type basicAuthTransport struct {
	base     http.RoundTripper
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	req.Header.Set("User-Agent", version.Full())
	return t.base.RoundTrip(req)
}

// Client is the DS HTTP client used by both the camera hub and the
// mobile app.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client authenticated as username/password against the
// delivery service at baseURL (e.g. "https://ds.example.com").
func New(baseURL, username, password string) *Client {
	base := http.DefaultTransport
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: &basicAuthTransport{base: base, username: username, password: password},
		},
	}
}

// NewWithHTTPClient lets callers (tests, or callers needing custom TLS)
// supply their own *http.Client; New wraps it with basic auth.
func NewWithHTTPClient(baseURL, username, password string, hc *http.Client) *Client {
	hc.Transport = &basicAuthTransport{base: roundTripperOrDefault(hc.Transport), username: username, password: password}
	return &Client{baseURL: baseURL, http: hc}
}

func roundTripperOrDefault(rt http.RoundTripper) http.RoundTripper {
	if rt != nil {
		return rt
	}
	return http.DefaultTransport
}

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// UploadMotion uploads a sequence of length-prefixed MLS records (a
// motion clip or thumbnail) under group_name/filename
// (POST /<group_name>/<filename>).
func (c *Client) UploadMotion(ctx context.Context, groupName, filename string, records []byte) (pending int, err error) {
	return c.upload(ctx, c.url("/%s/%s", groupName, filename), records)
}

// FetchMotion retrieves the file at group_name/filename.
func (c *Client) FetchMotion(ctx context.Context, groupName, filename string) ([]byte, error) {
	return c.get(ctx, c.url("/%s/%s", groupName, filename))
}

// DeleteMotion removes a delivered file from the queue.
func (c *Client) DeleteMotion(ctx context.Context, groupName, filename string) error {
	return c.delete(ctx, c.url("/%s/%s", groupName, filename))
}

// DeleteGroup deregisters a camera entirely, dropping its whole queue
// directory at the delivery service (DELETE /<group_name>).
func (c *Client) DeleteGroup(ctx context.Context, groupName string) error {
	return c.delete(ctx, c.url("/%s", groupName))
}

// BulkCheckRequest asks the DS which epochs already exist for a set of
// groups, to avoid redundant re-uploads.
type BulkCheckRequest struct {
	GroupNames []BulkCheckEntry `json:"group_names"`
}

type BulkCheckEntry struct {
	GroupName     string `json:"group_name"`
	EpochToCheck  uint64 `json:"epoch_to_check"`
}

type BulkCheckResult struct {
	GroupName string `json:"group_name"`
	ModTime   int64  `json:"mtime"`
}

// BulkCheck calls POST /bulkCheck.
func (c *Client) BulkCheck(ctx context.Context, req BulkCheckRequest) ([]BulkCheckResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal bulk check request: %w", err)
	}
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/bulkCheck"), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []BulkCheckResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("transport: decode bulk check response: %w", err)
	}
	return out, nil
}

// PairRequest is the body of POST /pair.
type PairRequest struct {
	PairingToken string `json:"pairing_token"`
	Role         string `json:"role"`
}

// PairResponse is the body of the /pair response.
type PairResponse struct {
	Status string `json:"status"`
}

const (
	PairRolePhone  = "phone"
	PairRoleCamera = "camera"

	PairStatusPaired       = "paired"
	PairStatusExpired      = "expired"
	PairStatusInvalidRole  = "invalid_role"
	PairStatusInvalidToken = "invalid_token"
)

// Pair calls POST /pair, blocking (server-side) until the rendezvous
// resolves or the 45-second window expires.
func (c *Client) Pair(ctx context.Context, token, role string) (PairResponse, error) {
	body, err := json.Marshal(PairRequest{PairingToken: token, Role: role})
	if err != nil {
		return PairResponse{}, fmt.Errorf("transport: marshal pair request: %w", err)
	}
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/pair"), body)
	if err != nil {
		return PairResponse{}, err
	}
	defer resp.Body.Close()

	var out PairResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PairResponse{}, fmt.Errorf("transport: decode pair response: %w", err)
	}
	return out, nil
}

// StartLivestream signals POST /livestream/<camera>, waking any
// subscriber blocked on the matching GET SSE endpoint.
func (c *Client) StartLivestream(ctx context.Context, camera string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/livestream/%s", camera), nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// WaitLivestreamStart consumes the SSE stream at GET /livestream/<camera>
// and returns the epoch string emitted once a session starts.
func (c *Client) WaitLivestreamStart(ctx context.Context, camera string) (string, error) {
	return c.readOneSSEEvent(ctx, c.url("/livestream/%s", camera))
}

// UploadLivestreamChunk uploads fragment n (n==0 is the session commit)
// to POST /livestream/<camera>/<n>.
func (c *Client) UploadLivestreamChunk(ctx context.Context, camera string, n uint64, fragment []byte) (pending int, err error) {
	return c.upload(ctx, c.url("/livestream/%s/%d", camera, n), fragment)
}

// FetchLivestreamChunk blocks (via SSE) until chunk n is available,
// then returns it.
func (c *Client) FetchLivestreamChunk(ctx context.Context, camera string, n uint64) ([]byte, error) {
	encoded, err := c.readOneSSEEvent(ctx, c.url("/livestream/%s/%d", camera, n))
	if err != nil {
		return nil, err
	}
	return decodeSSEPayload(encoded)
}

// EndLivestream calls POST /livestream_end/<camera>.
func (c *Client) EndLivestream(ctx context.Context, camera string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/livestream_end/%s", camera), nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// SendCommand uploads a config command to POST /config/<camera>.
func (c *Client) SendCommand(ctx context.Context, camera string, payload []byte) error {
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/config/%s", camera), payload)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// WaitCommand blocks via SSE on GET /config/<camera> and returns the
// base64-decoded payload once one arrives.
func (c *Client) WaitCommand(ctx context.Context, camera string) ([]byte, error) {
	encoded, err := c.readOneSSEEvent(ctx, c.url("/config/%s", camera))
	if err != nil {
		return nil, err
	}
	return decodeSSEPayload(encoded)
}

// SendConfigResponse uploads a config response to
// POST /config_response/<camera>.
func (c *Client) SendConfigResponse(ctx context.Context, camera string, payload []byte) error {
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/config_response/%s", camera), payload)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// WaitConfigResponse mirrors WaitCommand for the response direction.
func (c *Client) WaitConfigResponse(ctx context.Context, camera string) ([]byte, error) {
	encoded, err := c.readOneSSEEvent(ctx, c.url("/config_response/%s", camera))
	if err != nil {
		return nil, err
	}
	return decodeSSEPayload(encoded)
}

// SendFCMToken calls POST /fcm_token.
func (c *Client) SendFCMToken(ctx context.Context, token []byte) error {
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/fcm_token"), token)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// SendFCMNotification calls POST /fcm_notification.
func (c *Client) SendFCMNotification(ctx context.Context, body []byte) error {
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/fcm_notification"), body)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// FetchDebugLogs retrieves the accumulated debug log blob for camera at
// GET /debug_logs/<camera>.
func (c *Client) FetchDebugLogs(ctx context.Context, camera string) ([]byte, error) {
	return c.get(ctx, c.url("/debug_logs/%s", camera))
}

// UploadDebugLogs submits a debug log blob for camera to
// POST /debug_logs/<camera>.
func (c *Client) UploadDebugLogs(ctx context.Context, camera string, body []byte) error {
	resp, err := c.doJSON(ctx, http.MethodPost, c.url("/debug_logs/%s", camera), body)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *Client) upload(ctx context.Context, url string, body []byte) (pending int, err error) {
	resp, err := c.doJSON(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var out struct {
		Pending int `json:"pending"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("transport: decode upload response: %w", err)
	}
	return out.Pending, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %s: %w", url, err)
	}
	defer resp.Body.Close()
	if err := statusErr(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) delete(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("transport: %s: %w", url, err)
	}
	defer resp.Body.Close()
	return statusErr(resp)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %s: %w", url, err)
	}
	if err := statusErr(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func statusErr(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrLockedOut
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return nil
}

// readOneSSEEvent reads an SSE stream and returns the payload of the
// first "data:" line it sees, then closes the connection. Used for the
// wait-for-single-notification endpoints (livestream start, command,
// config response) where the server emits exactly one event per
// request and the connection then closes.
func (c *Client) readOneSSEEvent(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transport: %s: %w", url, err)
	}
	defer resp.Body.Close()
	if err := statusErr(resp); err != nil {
		return "", err
	}

	sc := newSSEScanner(resp.Body)
	for sc.Scan() {
		if data, ok := sc.Data(); ok {
			return data, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("transport: read sse stream: %w", err)
	}
	return "", io.EOF
}

// WithTimeout returns a context bounded by d, convenience for callers
// that want a deadline on a blocking SSE wait.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
