// internal/playback/service_impl_test.go
package playback

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/llehouerou/reel/internal/container"
	"github.com/llehouerou/reel/internal/errmsg"
	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/render"
)

func newSynthetic(t *testing.T, cfg container.SyntheticConfig) *container.Synthetic {
	t.Helper()
	if cfg.Duration == 0 {
		cfg.Duration = time.Minute
	}
	if cfg.VideoFrameRate == 0 && !cfg.StillPicture {
		cfg.VideoFrameRate = 25
	}
	if cfg.AudioFrame == 0 {
		cfg.AudioFrame = 20 * time.Millisecond
	}
	if cfg.AudioSampleRate == 0 {
		cfg.AudioSampleRate = 8000
	}
	src, err := container.NewSynthetic(cfg)
	if err != nil {
		t.Fatalf("NewSynthetic() error = %v", err)
	}
	return src
}

func openService(t *testing.T, src container.Container, tracker *render.Tracker) Service {
	t.Helper()
	svc := New(Options{
		Renderers: []render.Renderer{tracker},
		Sinks:     []render.FrameSink{tracker},
	})
	if err := svc.Open(context.Background(), src); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return svc
}

func TestNew_NothingOpen(t *testing.T) {
	svc := New(Options{})
	defer svc.Close()

	if svc.IsOpen() {
		t.Error("IsOpen() = true before Open")
	}
	if svc.State() != media.StateNone {
		t.Errorf("State() = %v, want None", svc.State())
	}
	if svc.Play() {
		t.Error("Play() accepted without media")
	}
	if svc.Toggle() {
		t.Error("Toggle() accepted without media")
	}
	if ok := <-svc.Seek(media.NewSeek(time.Second)); ok {
		t.Error("Seek() accepted without media")
	}
	if svc.CanPause() || svc.CanSeek() {
		t.Error("capabilities should be false without media")
	}
	if svc.Position() != 0 || svc.Duration() != 0 || svc.DecodingBitrate() != 0 {
		t.Error("queries should return zero values without media")
	}
}

func TestService_OpenStartsStopped(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracker := render.NewTracker()
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{}), tracker)
		defer svc.Close()

		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		if !svc.IsOpen() {
			t.Error("IsOpen() = false after Open")
		}
		if svc.State() != media.StateStop {
			t.Errorf("State() = %v, want Stop", svc.State())
		}
		if svc.Duration() != time.Minute {
			t.Errorf("Duration() = %v, want 1m", svc.Duration())
		}
		stats := svc.Stats()
		if stats.Buffered[media.Video] != stats.Capacity[media.Video] {
			t.Errorf("video buffered = %d, want full (%d)", stats.Buffered[media.Video], stats.Capacity[media.Video])
		}
		if svc.DecodingBitrate() <= 0 {
			t.Errorf("DecodingBitrate() = %d, want > 0", svc.DecodingBitrate())
		}
		if tracker.Renders(media.Video) != 0 {
			t.Error("blocks rendered while stopped")
		}
		if tracker.Decoded(media.Audio) == 0 {
			t.Error("sink received no audio frame")
		}
	})
}

func TestService_PlayRendersAndAdvances(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracker := render.NewTracker()
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{}), tracker)
		defer svc.Close()
		sub := svc.Subscribe()

		if !svc.Play() {
			t.Fatal("Play() rejected")
		}
		e := <-sub.StateChanged
		if e.Previous != media.StateStop || e.Current != media.StatePlay {
			t.Errorf("StateChange = %+v, want Stop -> Play", e)
		}

		time.Sleep(2 * time.Second)
		synctest.Wait()

		if pos := svc.Position(); pos < 2*time.Second {
			t.Errorf("Position() = %v, want >= 2s", pos)
		}
		if n := tracker.Renders(media.Video); n < 40 {
			t.Errorf("video renders = %d, want >= 40", n)
		}
		if tracker.Transitions().Play != 1 {
			t.Errorf("OnPlay calls = %d, want 1", tracker.Transitions().Play)
		}
	})
}

func TestService_Toggle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{}), render.NewTracker())
		defer svc.Close()

		if !svc.Toggle() || svc.State() != media.StatePlay {
			t.Fatalf("Toggle() from Stop: state = %v, want Play", svc.State())
		}
		if !svc.Toggle() || svc.State() != media.StatePause {
			t.Fatalf("Toggle() from Play: state = %v, want Pause", svc.State())
		}
	})
}

func TestService_PauseNotPausable(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{NotPausable: true}), render.NewTracker())
		defer svc.Close()
		svc.Play()

		if svc.Pause() {
			t.Error("Pause() accepted on a non-pausable source")
		}
		if svc.State() != media.StatePlay {
			t.Errorf("State() = %v, want Play", svc.State())
		}
	})
}

func TestService_SeekTo(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracker := render.NewTracker()
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{}), tracker)
		defer svc.Close()
		sub := svc.Subscribe()

		ok, err := svc.SeekTo(context.Background(), 30*time.Second)
		if err != nil || !ok {
			t.Fatalf("SeekTo() = %v, %v, want true, nil", ok, err)
		}

		e := <-sub.PositionChanged
		if e.Position != 30*time.Second {
			t.Errorf("PositionChange = %v, want 30s", e.Position)
		}
		if svc.Position() != 30*time.Second {
			t.Errorf("Position() = %v, want 30s", svc.Position())
		}
		if tracker.LastSeek() != 30*time.Second {
			t.Errorf("renderer seek = %v, want 30s", tracker.LastSeek())
		}

		ok, err = svc.SeekBy(context.Background(), -5*time.Second)
		if err != nil || !ok {
			t.Fatalf("SeekBy() = %v, %v, want true, nil", ok, err)
		}
		if svc.Position() != 25*time.Second {
			t.Errorf("Position() = %v, want 25s", svc.Position())
		}
	})
}

func TestService_SeekWhilePausedStaysPaused(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{}), render.NewTracker())
		defer svc.Close()
		svc.Play()
		svc.Pause()

		ok, err := svc.SeekTo(context.Background(), 10*time.Second)
		if err != nil || !ok {
			t.Fatalf("SeekTo() = %v, %v", ok, err)
		}
		time.Sleep(time.Second)
		synctest.Wait()

		if svc.State() != media.StatePause {
			t.Errorf("State() = %v, want Pause", svc.State())
		}
		if svc.Position() != 10*time.Second {
			t.Errorf("Position() = %v, want 10s (clock halted)", svc.Position())
		}
	})
}

func TestService_SeekContextCancelled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{}), render.NewTracker())
		defer svc.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		// Either the seek already resolved or the context wins
		if _, err := svc.SeekTo(ctx, time.Second); err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("SeekTo() error = %v, want nil or context.Canceled", err)
		}
	})
}

func TestService_StopRewinds(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracker := render.NewTracker()
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{}), tracker)
		defer svc.Close()
		svc.Play()
		time.Sleep(3 * time.Second)
		synctest.Wait()

		if !svc.Stop(context.Background()) {
			t.Fatal("Stop() rejected")
		}
		if svc.State() != media.StateStop {
			t.Errorf("State() = %v, want Stop", svc.State())
		}
		if svc.Position() != 0 {
			t.Errorf("Position() = %v, want 0", svc.Position())
		}
		if tracker.Transitions().Stop != 1 {
			t.Errorf("OnStop calls = %d, want 1", tracker.Transitions().Stop)
		}
	})
}

func TestService_StopNotSeekable(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{NotSeekable: true}), render.NewTracker())
		defer svc.Close()

		if svc.Stop(context.Background()) {
			t.Error("Stop() accepted on a non-seekable source")
		}
		if ok := <-svc.Seek(media.NewSeek(time.Second)); ok {
			t.Error("Seek() accepted on a non-seekable source")
		}
	})
}

func TestService_Capabilities(t *testing.T) {
	tests := []struct {
		name         string
		cfg          container.SyntheticConfig
		wantPausable bool
		wantSeekable bool
	}{
		{"default", container.SyntheticConfig{}, true, true},
		{"not pausable", container.SyntheticConfig{NotPausable: true}, false, true},
		{"not seekable", container.SyntheticConfig{NotSeekable: true}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				svc := openService(t, newSynthetic(t, tt.cfg), render.NewTracker())
				defer svc.Close()

				if got := svc.CanPause(); got != tt.wantPausable {
					t.Errorf("CanPause() = %v, want %v", got, tt.wantPausable)
				}
				if got := svc.CanSeek(); got != tt.wantSeekable {
					t.Errorf("CanSeek() = %v, want %v", got, tt.wantSeekable)
				}
			})
		})
	}
}

func TestService_MediaEndPauses(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := newSynthetic(t, container.SyntheticConfig{Duration: 2 * time.Second, VideoFrameRate: 10})
		svc := openService(t, src, render.NewTracker())
		defer svc.Close()
		sub := svc.Subscribe()
		svc.Play()

		time.Sleep(3 * time.Second)
		synctest.Wait()

		select {
		case e := <-sub.MediaEnded:
			if e.URL != src.URL() {
				t.Errorf("MediaEnded.URL = %q, want %q", e.URL, src.URL())
			}
		default:
			t.Fatal("no MediaEnded event")
		}
		if !svc.HasDecodingEnded() {
			t.Error("HasDecodingEnded() = false at end of media")
		}
		if svc.State() != media.StatePause {
			t.Errorf("State() = %v, want Pause", svc.State())
		}

		ended := false
		for !ended {
			select {
			case e := <-sub.DecodingEndedChanged:
				ended = e.Ended
			default:
				t.Fatal("no DecodingEndedChange{Ended: true} event")
			}
		}
	})
}

func TestService_PauseAtEndRetriedWhileBusy(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{}), render.NewTracker())
		defer svc.Close()
		svc.Play()
		impl := svc.(*serviceImpl)
		sess := impl.current()

		result := svc.Seek(media.NewSeek(time.Second))
		if impl.pauseAtEnd(sess) {
			t.Error("pauseAtEnd() accepted while a seek is pending")
		}
		if svc.State() != media.StatePlay {
			t.Errorf("State() = %v, want Play", svc.State())
		}

		<-result
		if !impl.pauseAtEnd(sess) {
			t.Error("pauseAtEnd() rejected once the seek completed")
		}
		if svc.State() != media.StatePause {
			t.Errorf("State() = %v, want Pause", svc.State())
		}
	})
}

func TestService_PauseAtEndNotPausable(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc := openService(t, newSynthetic(t, container.SyntheticConfig{NotPausable: true}), render.NewTracker())
		defer svc.Close()
		svc.Play()
		impl := svc.(*serviceImpl)

		if !impl.pauseAtEnd(impl.current()) {
			t.Error("pauseAtEnd() should settle on a non-pausable source")
		}
		if svc.State() != media.StatePlay {
			t.Errorf("State() = %v, want Play", svc.State())
		}
	})
}

func TestService_DecodeErrorReported(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := container.NewMock(media.Video)
		src.QueueSequence(media.Video, 3, 40*time.Millisecond)
		src.SetReceiveError(media.Video, errors.New("corrupt packet"))
		svc := New(Options{})
		sub := svc.Subscribe()
		if err := svc.Open(context.Background(), src); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer svc.Close()

		time.Sleep(50 * time.Millisecond)
		synctest.Wait()

		e := <-sub.Error
		if e.Operation != errmsg.OpDecode {
			t.Errorf("ErrorEvent.Operation = %q, want %q", e.Operation, errmsg.OpDecode)
		}
		if e.URL != src.URL() {
			t.Errorf("ErrorEvent.URL = %q, want %q", e.URL, src.URL())
		}
		want := "Failed to decode frames 'mock://': decode Video frame: corrupt packet"
		if e.Message() != want {
			t.Errorf("Message() = %q, want %q", e.Message(), want)
		}
		if svc.Stats().DecodeFailures == 0 {
			t.Error("Stats().DecodeFailures = 0")
		}
	})
}

func TestService_ReopenReplacesMedia(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		first := container.NewMock(media.Audio)
		svc := openService(t, first, render.NewTracker())
		defer svc.Close()

		second := newSynthetic(t, container.SyntheticConfig{URL: "synthetic://second"})
		if err := svc.Open(context.Background(), second); err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		if !first.Closed() {
			t.Error("previous container not closed")
		}
		if svc.Stats().URL != "synthetic://second" {
			t.Errorf("Stats().URL = %q, want synthetic://second", svc.Stats().URL)
		}
	})
}

func TestService_CloseReleasesPendingSeek(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := container.NewMock(media.Video)
		svc := openService(t, src, render.NewTracker())
		sub := svc.Subscribe()

		pending := svc.Seek(media.NewSeek(time.Second))
		if err := svc.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if ok := <-pending; !ok {
			t.Error("pending seek resolved false, want true")
		}
		<-sub.Done
		if !src.Closed() {
			t.Error("container not closed")
		}
		if svc.IsOpen() {
			t.Error("IsOpen() = true after Close")
		}
		if err := svc.Open(context.Background(), container.NewMock(media.Video)); !errors.Is(err, ErrClosed) {
			t.Errorf("Open() after Close error = %v, want ErrClosed", err)
		}
		if err := svc.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
	})
}
