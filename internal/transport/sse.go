package transport

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// sseScanner reads "data: <payload>" lines from a server-sent events
// stream, skipping blank lines and comments.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{scanner: bufio.NewScanner(r)}
}

// Scan advances to the next non-empty, non-comment line.
func (s *sseScanner) Scan() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		return true
	}
	return false
}

// Data returns the payload of the current line if it is a "data:" line.
func (s *sseScanner) Data() (string, bool) {
	line := s.scanner.Text()
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(payload), true
}

func (s *sseScanner) Err() error {
	return s.scanner.Err()
}

// decodeSSEPayload base64-decodes a config/command SSE payload (spec.md
// section 4.4: "base64-encoded payload for config").
func decodeSSEPayload(encoded string) ([]byte, error) {
	data, err := DecodeSSEPayload(encoded)
	if err != nil {
		return nil, fmt.Errorf("transport: decode sse payload: %w", err)
	}
	return data, nil
}

// DecodeSSEPayload base64-decodes an SSE event payload. Exported so the
// delivery service (which emits these events rather than consuming
// them) shares the exact same wire encoding.
func DecodeSSEPayload(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}

// EncodeSSEPayload is the server-side counterpart used by the delivery
// service when writing config/command SSE events.
func EncodeSSEPayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
