//go:build linux

package mpris

import (
	"github.com/hashicorp/go-hclog"
	"github.com/quarckster/go-mpris-server/pkg/server"

	"github.com/llehouerou/reel/internal/playback"
)

// Adapter connects the playback service to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
	logger hclog.Logger
}

// New creates and starts a new MPRIS adapter.
func New(service playback.Service, logger hclog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	a := &Adapter{
		server: server.NewServer(busName, &rootAdapter{}, &playerAdapter{service: service}),
		logger: logger,
	}

	// Start the server in background
	go func() {
		if err := a.server.Listen(); err != nil {
			a.logger.Warn("mpris server stopped", "error", err)
		}
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}
