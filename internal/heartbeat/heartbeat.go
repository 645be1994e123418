// Package heartbeat implements the config sub-channel's liveness
// protocol: the app-to-camera heartbeat request/response pair and the
// app-side classification of the reply (spec.md section 4.6).
package heartbeat

import "encoding/json"

const (
	OpcodeHeartbeatRequest  = "heartbeat_request"
	OpcodeHeartbeatResponse = "heartbeat_response"
)

// Request is sent app -> camera on the config sub-channel.
type Request struct {
	Opcode      string `json:"opcode"`
	Timestamp   uint64 `json:"timestamp"`
	MotionEpoch uint64 `json:"motion_epoch"`
}

// NewRequest builds a Request for the given Unix timestamp and the
// app's last-known motion epoch.
func NewRequest(timestamp, motionEpoch uint64) Request {
	return Request{Opcode: OpcodeHeartbeatRequest, Timestamp: timestamp, MotionEpoch: motionEpoch}
}

// Marshal serializes req for transmission as an MLS application message
// on the config sub-channel.
func (r Request) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// ParseRequest parses a Request from a decrypted config-channel message.
func ParseRequest(data []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Response is the camera's reply, carrying its current epochs so the
// app's next heartbeat can feed process_heartbeat.
type Response struct {
	Opcode         string `json:"opcode"`
	Timestamp      uint64 `json:"timestamp"`
	MotionEpoch    uint64 `json:"motion_epoch"`
	ThumbnailEpoch uint64 `json:"thumbnail_epoch"`
}

// NewResponse builds the camera's reply, echoing the request's
// timestamp and reporting its current epochs.
func NewResponse(requestTimestamp, motionEpoch, thumbnailEpoch uint64) Response {
	return Response{
		Opcode:         OpcodeHeartbeatResponse,
		Timestamp:      requestTimestamp,
		MotionEpoch:    motionEpoch,
		ThumbnailEpoch: thumbnailEpoch,
	}
}

// Marshal serializes resp for transmission.
func (r Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// ParseResponse parses a Response from a decrypted config-channel
// message.
func ParseResponse(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, err
	}
	return r, nil
}

// Result classifies the outcome of one heartbeat round-trip (spec.md
// section 4.6).
type Result int

const (
	HealthyHeartbeat Result = iota
	InvalidTimestamp
	InvalidEpoch
	InvalidCiphertext
)

func (r Result) String() string {
	switch r {
	case HealthyHeartbeat:
		return "HealthyHeartbeat"
	case InvalidTimestamp:
		return "InvalidTimestamp"
	case InvalidEpoch:
		return "InvalidEpoch"
	case InvalidCiphertext:
		return "InvalidCiphertext"
	default:
		return "Unknown"
	}
}

// Classify compares the response against the request that provoked it.
// decryptErr, when non-nil, means the response itself failed to
// decrypt — the only path to InvalidCiphertext, since everything else
// requires a readable response.
func Classify(req Request, resp Response, decryptErr error) Result {
	if decryptErr != nil {
		return InvalidCiphertext
	}
	if resp.Timestamp != req.Timestamp {
		return InvalidTimestamp
	}
	if resp.MotionEpoch != req.MotionEpoch {
		return InvalidEpoch
	}
	return HealthyHeartbeat
}
