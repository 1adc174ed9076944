// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/bootdesc/pkg/history"
	"github.com/ssargent/bootdesc/pkg/region"
)

// RegionService defines the region operations exposed over HTTP
type RegionService interface {
	Inspect() (*region.Descriptors, error)
	SwitchSlot(slot uint32) (*region.Descriptors, error)
	Restore(id string) (*region.Descriptors, error)
	History(limit int) ([]history.Snapshot, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API until ctx is cancelled
	StartServer(ctx context.Context, svc RegionService, config ServerConfig, metrics *Metrics) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
