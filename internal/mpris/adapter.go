// Package mpris exposes the playback service on the session bus through
// the MPRIS D-Bus interface.
package mpris

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/playback"
)

const (
	busName      = "reel"
	identity     = "Reel"
	seekTimeout  = 5 * time.Second
	noTrackPath  = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
	trackPathFmt = "/org/mpris/MediaPlayer2/Track/%x"
)

// ErrRejected is returned when the service refuses a control request.
var ErrRejected = errors.New("request rejected by player")

func accepted(ok bool) error {
	if !ok {
		return ErrRejected
	}
	return nil
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"synthetic"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
type playerAdapter struct {
	service playback.Service
}

// Next and Previous have nothing to move to with a single open media.
func (p *playerAdapter) Next() error { return nil }

func (p *playerAdapter) Previous() error { return nil }

func (p *playerAdapter) Pause() error {
	if p.service.State() != media.StatePlay {
		return nil
	}
	return accepted(p.service.Pause())
}

func (p *playerAdapter) PlayPause() error {
	return accepted(p.service.Toggle())
}

func (p *playerAdapter) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), seekTimeout)
	defer cancel()
	return accepted(p.service.Stop(ctx))
}

func (p *playerAdapter) Play() error {
	if p.service.State() == media.StatePlay {
		return nil
	}
	return accepted(p.service.Play())
}

// Seek moves relative to the current position.
func (p *playerAdapter) Seek(offset types.Microseconds) error {
	ctx, cancel := context.WithTimeout(context.Background(), seekTimeout)
	defer cancel()
	ok, err := p.service.SeekBy(ctx, time.Duration(offset)*time.Microsecond)
	if err != nil {
		return err
	}
	return accepted(ok)
}

// SetPosition is ignored when trackID is not the open media, as
// required by MPRIS.
func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	if trackID != string(p.trackID()) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), seekTimeout)
	defer cancel()
	ok, err := p.service.SeekTo(ctx, time.Duration(position)*time.Microsecond)
	if err != nil {
		return err
	}
	return accepted(ok)
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.service.State() {
	case media.StatePlay:
		return types.PlaybackStatusPlaying, nil
	case media.StatePause:
		return types.PlaybackStatusPaused, nil
	default:
		return types.PlaybackStatusStopped, nil
	}
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	url := p.service.Stats().URL
	if url == "" {
		return types.Metadata{TrackId: noTrackPath}, nil
	}
	return types.Metadata{
		TrackId: p.trackID(),
		Length:  types.Microseconds(p.service.Duration().Microseconds()),
		Title:   url,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	return p.service.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.service.IsOpen(), nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return p.service.CanPause(), nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.service.CanSeek(), nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func (p *playerAdapter) trackID() dbus.ObjectPath {
	url := p.service.Stats().URL
	if url == "" {
		return noTrackPath
	}
	h := fnv.New64a()
	h.Write([]byte(url))
	return dbus.ObjectPath(fmt.Sprintf(trackPathFmt, h.Sum64()))
}
