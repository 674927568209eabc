// Package media holds the vocabulary shared by the engine packages: media
// types, playback states, decoded frames, blocks and seek operations.
package media

import "time"

// MediaType identifies a component stream of a container.
type MediaType int

const (
	None MediaType = iota
	Video
	Audio
	Subtitle
)

// Types lists the decodable media types in serial decoding order.
var Types = []MediaType{Video, Audio, Subtitle}

// String returns the media type name.
func (t MediaType) String() string {
	switch t {
	case None:
		return "None"
	case Video:
		return "Video"
	case Audio:
		return "Audio"
	case Subtitle:
		return "Subtitle"
	default:
		return "Unknown"
	}
}

// Frame is an opaque decoded frame handed over by a container.
// The engine only looks at its timing, size and type; Data is passed
// untouched to the frame sink.
type Frame struct {
	Type      MediaType
	StartTime time.Duration
	Duration  time.Duration
	Size      int  // compressed size in bytes
	Still     bool // attached picture (cover art)
	Data      any
}

// EndTime returns the instant right after the frame.
func (f Frame) EndTime() time.Duration {
	return f.StartTime + f.Duration
}

// Block is a decoded unit held by a block buffer. Blocks are never
// mutated once added.
type Block struct {
	Type      MediaType
	Index     int64
	StartTime time.Duration
	Duration  time.Duration
	Size      int
	Still     bool
}

// NewBlock creates the block record of a decoded frame.
func NewBlock(f Frame, index int64) Block {
	return Block{
		Type:      f.Type,
		Index:     index,
		StartTime: f.StartTime,
		Duration:  f.Duration,
		Size:      f.Size,
		Still:     f.Still,
	}
}

// EndTime returns the instant right after the block.
func (b Block) EndTime() time.Duration {
	return b.StartTime + b.Duration
}

// Contains reports whether position falls within the block.
func (b Block) Contains(position time.Duration) bool {
	return position >= b.StartTime && position < b.EndTime()
}

// SnapTime returns the position a clock snaps to when it stops inside
// this block.
func (b Block) SnapTime() time.Duration {
	return b.StartTime
}

// NormalizePosition truncates a position to millisecond resolution.
func NormalizePosition(d time.Duration) time.Duration {
	return d.Truncate(time.Millisecond)
}
