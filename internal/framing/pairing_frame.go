package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// pairingLengthPrefixSize is the 8-byte big-endian length prefix used
// on the direct pairing TCP connection (spec.md section 4.2, "Pairing
// handshake framing"), distinct from the 4-byte prefix used for motion
// video records on the DS.
const pairingLengthPrefixSize = 8

// shortBackoff is how long ReadPairingFrame waits before retrying a
// read that returned a transient net.Error timeout, to tolerate the
// WouldBlock-style condition spec.md calls out without busy-spinning.
const shortBackoff = 5 * time.Millisecond

// ErrEarlyEOF is returned when the peer closes the connection mid-frame.
var ErrEarlyEOF = errors.New("framing: connection closed mid-frame")

// WritePairingFrame writes an 8-byte big-endian length prefix followed
// by msg to conn.
func WritePairingFrame(conn net.Conn, msg []byte) error {
	var lenBuf [pairingLengthPrefixSize]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(msg)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("framing: write pairing frame length: %w", err)
	}
	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("framing: write pairing frame body: %w", err)
	}
	return nil
}

// ReadPairingFrame reads one 8-byte-length-prefixed frame from conn,
// tolerating transient timeouts with a short backoff but treating an
// early EOF (the peer hanging up mid-frame) as fatal.
func ReadPairingFrame(conn net.Conn) ([]byte, error) {
	lenBuf, err := readFullRetrying(conn, pairingLengthPrefixSize)
	if err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint64(lenBuf)

	body, err := readFullRetrying(conn, int(n))
	if err == io.EOF {
		return nil, ErrEarlyEOF
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func readFullRetrying(conn net.Conn, n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		k, err := conn.Read(buf[read:])
		read += k
		if err != nil {
			if err == io.EOF {
				if read == 0 {
					return nil, io.EOF
				}
				return nil, ErrEarlyEOF
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				time.Sleep(shortBackoff)
				continue
			}
			return nil, err
		}
	}
	return buf, nil
}
