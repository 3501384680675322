// Package backend builds the Ledger Store selected by configuration, the
// optional ledger event publisher and the services wired on top of them.
package backend

import (
	"context"

	"society/internal/ledger"
	"society/internal/services"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult is a ready ledger store plus its optional event publisher.
// Publisher is nil when AMQP is not configured or unreachable.
type BackendResult struct {
	Store     ledger.Store
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
