// Package decoding implements the frame decoding worker: each cycle pulls
// frames from the container into the per-type block buffers until they
// are full enough, then publishes throughput and end-of-stream state.
package decoding

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/reel/internal/blocks"
	"github.com/llehouerou/reel/internal/clock"
	"github.com/llehouerou/reel/internal/container"
	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/worker"
)

// State receives the decoding results published at the end of a cycle.
type State interface {
	HasDecodingEnded() bool
	UpdateDecodingEnded(ended bool)
	UpdateDecodingBitrate(bitrate int64)
}

// Sink receives decoded frames as soon as they are turned into blocks.
type Sink interface {
	OnFrameDecoded(t media.MediaType, f media.Frame)
	OnSubtitleDecoded(f media.Frame)
}

// Deps groups the collaborators of a Worker.
type Deps struct {
	Container container.Container
	Buffers   map[media.MediaType]*blocks.Buffer
	Clock     clock.Clock
	Sink      Sink
	State     State
}

// Worker is the frame decoding worker.
type Worker struct {
	container container.Container
	buffers   map[media.MediaType]*blocks.Buffer
	clock     clock.Clock
	sink      Sink
	state     State
	parallel  bool
	logger    hclog.Logger

	decodedFrameCount atomic.Int64
}

// Option configures a Worker.
type Option func(*Worker)

// WithParallel forces one concurrent decode pass per media type.
func WithParallel(parallel bool) Option {
	return func(w *Worker) { w.parallel = parallel }
}

// WithLogger sets the worker logger.
func WithLogger(logger hclog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// New creates a decoding worker.
func New(deps Deps, opts ...Option) *Worker {
	w := &Worker{
		container: deps.Container,
		buffers:   deps.Buffers,
		clock:     deps.Clock,
		sink:      deps.Sink,
		state:     deps.State,
		logger:    hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// DecodedFrameCount returns the number of blocks added by the last cycle.
func (w *Worker) DecodedFrameCount() int64 {
	return w.decodedFrameCount.Load()
}

// Strategy returns the decode strategy the next cycle will use.
func (w *Worker) Strategy() Strategy {
	return StrategyFor(w.clock.IsUnified(), w.parallel)
}

// ExecuteCycle runs one decoding cycle. Blocks added before a failure are
// kept, and throughput and end-of-stream state are always published.
func (w *Worker) ExecuteCycle(ctx context.Context) error {
	if w.state.HasDecodingEnded() || ctx.Err() != nil {
		return nil
	}

	w.decodedFrameCount.Store(0)
	defer w.finishCycle()

	types := w.mediaTypes()
	switch w.Strategy() {
	case StrategyParallel:
		return w.decodeParallel(ctx, types)
	default:
		return w.decodeSerial(ctx, types)
	}
}

func (w *Worker) decodeSerial(ctx context.Context, types []media.MediaType) error {
	for _, t := range types {
		n, err := w.DecodeBlocks(ctx, t)
		w.decodedFrameCount.Add(int64(n))
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) decodeParallel(ctx context.Context, types []media.MediaType) error {
	// Passes are independent: a failing type does not cancel the others.
	var g errgroup.Group
	for _, t := range types {
		g.Go(func() error {
			n, err := w.safeDecodeBlocks(ctx, t)
			w.decodedFrameCount.Add(int64(n))
			return err
		})
	}
	return g.Wait()
}

// safeDecodeBlocks recovers a panic raised by a pass running off the
// harness goroutine and returns it as a worker.PanicError.
func (w *Worker) safeDecodeBlocks(ctx context.Context, t media.MediaType) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("decode pass panicked", "type", t, "panic", r)
			err = &worker.PanicError{Value: fmt.Sprintf("decode %s pass: %v", t, r), Stack: debug.Stack()}
		}
	}()
	return w.DecodeBlocks(ctx, t)
}

// DecodeBlocks runs the bounded fetch loop for one media type and returns
// the number of blocks added. It never adds more than the buffer capacity
// per call, and stops early while a full buffer is still ahead of the
// clock.
func (w *Worker) DecodeBlocks(ctx context.Context, t media.MediaType) (int, error) {
	buf := w.buffers[t]
	if buf == nil {
		return 0, nil
	}

	added := 0
	for added < buf.Capacity() {
		position := w.clock.Position(t)
		mid := buf.RangeMidTime()
		if buf.IsFull() && position < mid {
			break
		}
		if ctx.Err() != nil {
			break
		}

		ok, err := w.addNextBlock(t, buf)
		if err != nil {
			return added, fmt.Errorf("decode %s frame: %w", t, err)
		}
		if !ok {
			break
		}
		added++
	}
	return added, nil
}

func (w *Worker) addNextBlock(t media.MediaType, buf *blocks.Buffer) (bool, error) {
	opt, err := w.container.ReceiveNextFrame(t)
	if err != nil {
		return false, err
	}
	f, ok := opt.Get()
	if !ok {
		return false, nil
	}
	if _, ok := buf.Add(f); !ok {
		return false, nil
	}

	if w.sink != nil {
		if t == media.Subtitle {
			w.sink.OnSubtitleDecoded(f)
		} else {
			w.sink.OnFrameDecoded(t, f)
		}
	}
	return true, nil
}

// CanReadMoreFramesOf reports whether the container may still produce
// frames of type t.
func (w *Worker) CanReadMoreFramesOf(t media.MediaType) bool {
	return w.container.BufferLength(t) > 0 ||
		w.container.HasPacketsInCodec(t) ||
		!w.container.IsAtEndOfStream()
}

func (w *Worker) finishCycle() {
	w.state.UpdateDecodingBitrate(w.bitrate())

	count := w.decodedFrameCount.Load()
	ended := count <= 0 && !w.CanReadMoreFramesOf(w.container.SeekableMediaType())
	w.state.UpdateDecodingEnded(ended)

	if count > 0 {
		w.logger.Trace("decode cycle", "blocks", count)
	}
}

// bitrate sums the buffered bitrate of every type, ignoring cover art.
func (w *Worker) bitrate() int64 {
	return lo.SumBy(lo.Values(w.buffers), func(b *blocks.Buffer) int64 {
		if b.IsStillPicture() {
			return 0
		}
		return b.RangeBitrate()
	})
}

func (w *Worker) mediaTypes() []media.MediaType {
	return lo.Filter(w.container.MediaTypes(), func(t media.MediaType, _ int) bool {
		return w.buffers[t] != nil
	})
}
