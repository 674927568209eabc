// Package blocks implements the bounded, time-ordered block buffers the
// decoding worker fills and the render path reads.
package blocks

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/llehouerou/reel/internal/media"
)

// Buffer is a bounded ring of blocks of a single media type, ordered by
// start time. Count never exceeds Capacity: adding to a full buffer
// evicts the oldest block first.
type Buffer struct {
	mu        sync.RWMutex
	mediaType media.MediaType
	capacity  int
	blocks    []media.Block
	nextIndex int64
}

// New creates an empty buffer. Capacities below 1 are clamped to 1.
func New(t media.MediaType, capacity int) *Buffer {
	capacity = max(capacity, 1)
	return &Buffer{
		mediaType: t,
		capacity:  capacity,
		blocks:    make([]media.Block, 0, capacity),
	}
}

// MediaType returns the type of blocks held by the buffer.
func (b *Buffer) MediaType() media.MediaType { return b.mediaType }

// Capacity returns the maximum number of blocks.
func (b *Buffer) Capacity() int { return b.capacity }

// Count returns the number of blocks currently held.
func (b *Buffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blocks)
}

// IsFull returns true when the buffer holds Capacity blocks.
func (b *Buffer) IsFull() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blocks) >= b.capacity
}

// Add converts a frame into a block and inserts it in start time order.
// Frames of another media type are rejected.
func (b *Buffer) Add(f media.Frame) (media.Block, bool) {
	if f.Type != b.mediaType {
		return media.Block{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.blocks) >= b.capacity {
		copy(b.blocks, b.blocks[1:])
		b.blocks = b.blocks[:len(b.blocks)-1]
	}

	block := media.NewBlock(f, b.nextIndex)
	b.nextIndex++

	i := sort.Search(len(b.blocks), func(i int) bool {
		return b.blocks[i].StartTime > block.StartTime
	})
	b.blocks = append(b.blocks, media.Block{})
	copy(b.blocks[i+1:], b.blocks[i:])
	b.blocks[i] = block

	return block, true
}

// Clear removes every block.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks = b.blocks[:0]
}

// Blocks returns a copy of the held blocks.
func (b *Buffer) Blocks() []media.Block {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]media.Block, len(b.blocks))
	copy(out, b.blocks)
	return out
}

// RangeStartTime returns the start time of the earliest block, or zero.
func (b *Buffer) RangeStartTime() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.blocks) == 0 {
		return 0
	}
	return b.blocks[0].StartTime
}

// RangeEndTime returns the end time of the latest block, or zero.
func (b *Buffer) RangeEndTime() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rangeEndLocked()
}

func (b *Buffer) rangeEndLocked() time.Duration {
	if len(b.blocks) == 0 {
		return 0
	}
	return b.blocks[len(b.blocks)-1].EndTime()
}

// RangeDuration returns the span covered by the buffer.
func (b *Buffer) RangeDuration() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rangeDurationLocked()
}

func (b *Buffer) rangeDurationLocked() time.Duration {
	if len(b.blocks) == 0 {
		return 0
	}
	return b.rangeEndLocked() - b.blocks[0].StartTime
}

// RangeMidTime returns the instant halfway through the buffered range.
// The decoding worker does not decode ahead of a full buffer until the
// clock has passed this point.
func (b *Buffer) RangeMidTime() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.blocks) == 0 {
		return 0
	}
	return b.blocks[0].StartTime + b.rangeDurationLocked()/2
}

// RangeBitrate returns the compressed bitrate of the buffered range in
// bits per second.
func (b *Buffer) RangeBitrate() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d := b.rangeDurationLocked()
	if d <= 0 {
		return 0
	}
	bits := 8 * lo.SumBy(b.blocks, func(block media.Block) int64 {
		return int64(block.Size)
	})
	return int64(float64(bits) / d.Seconds())
}

// IsStillPicture returns true for a video buffer holding a single still
// image, such as the cover art of an audio file.
func (b *Buffer) IsStillPicture() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mediaType == media.Video && len(b.blocks) == 1 && b.blocks[0].Still
}

// IndexOf returns the index of the block a clock at position would
// render: the last block starting at or before position, clamped to
// the buffered range. Returns -1 when empty.
func (b *Buffer) IndexOf(position time.Duration) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indexOfLocked(position)
}

func (b *Buffer) indexOfLocked(position time.Duration) int {
	n := len(b.blocks)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool {
		return b.blocks[i].StartTime > position
	})
	return max(i-1, 0)
}

// BlockAt returns the block at the given position, clamped to the range.
func (b *Buffer) BlockAt(position time.Duration) (media.Block, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.indexOfLocked(position)
	if i < 0 {
		return media.Block{}, false
	}
	return b.blocks[i], true
}

// GetSnapPosition returns the snap time of the block at position.
func (b *Buffer) GetSnapPosition(position time.Duration) (time.Duration, bool) {
	block, ok := b.BlockAt(position)
	if !ok {
		return 0, false
	}
	return block.SnapTime(), true
}
