// Package subchannel defines the fixed set of MLS sub-channels that make
// up a paired camera/app relationship.
package subchannel

// Tag identifies one of the five MLS sub-channels shared by a camera hub
// and its paired app.
type Tag int

// Tag-to-index mapping is part of the wire contract and must not change:
// motion=0, livestream=1, thumbnail=2, config=3, fcm=4. Fcm predates
// Thumbnail (it already exists in the older build) and carries only the
// push-notification timestamp plaintext; it stays a distinct channel
// rather than being folded into Config.
const (
	Motion Tag = iota
	Livestream
	Thumbnail
	Config
	Fcm
)

// Count is the compile-time number of sub-channels. Resolves the open
// question of whether thumbnail is mandatory: here it always is, and it
// coexists with Fcm rather than replacing it.
const Count = 5

// All lists every tag in wire order.
var All = [Count]Tag{Motion, Livestream, Thumbnail, Config, Fcm}

// String renders the tag's name, used for filenames, group-name
// derivation salts, and log fields.
func (t Tag) String() string {
	switch t {
	case Motion:
		return "motion"
	case Livestream:
		return "livestream"
	case Thumbnail:
		return "thumbnail"
	case Config:
		return "config"
	case Fcm:
		return "fcm"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the five defined tags.
func (t Tag) Valid() bool {
	return t >= Motion && t <= Fcm
}
