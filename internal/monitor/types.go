// Package monitor implements the camera hub's durable delivery
// monitor: the watch/pending queue pair that tracks which media have
// been uploaded and which have been acknowledged via heartbeat, per
// spec.md section 4.3.
package monitor

import "strconv"

// VideoInfo identifies one motion video: the timestamp that names it on
// disk, and the MLS epoch it was encrypted at.
type VideoInfo struct {
	Timestamp int64  `json:"timestamp"`
	Epoch     uint64 `json:"epoch"`
}

// Filename derives the canonical plaintext filename for this video.
func (v VideoInfo) Filename() string {
	return videoFilename(v.Timestamp)
}

// DetectionLabel is one of the general detection categories a
// thumbnail can carry.
type DetectionLabel string

const (
	LabelHuman DetectionLabel = "human"
	LabelPet   DetectionLabel = "pet"
	LabelCar   DetectionLabel = "car"
)

// ThumbnailMetaInfo identifies one thumbnail, additionally carrying the
// set of detection labels attached to it.
type ThumbnailMetaInfo struct {
	Timestamp int64            `json:"timestamp"`
	Epoch     uint64           `json:"epoch"`
	Labels    []DetectionLabel `json:"labels"`
}

// Filename derives the canonical plaintext filename for this thumbnail.
func (tm ThumbnailMetaInfo) Filename() string {
	return videoFilename(tm.Timestamp)
}

func videoFilename(timestamp int64) string {
	return "video_" + strconv.FormatInt(timestamp, 10) + ".mp4"
}
