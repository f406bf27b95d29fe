package backend

import (
	"context"
	"time"

	"spendview/internal/ports"
)

// Backend is everything the HTTP layer reads and writes, authentication aside.
type Backend interface {
	ports.ExpenseLister
	ports.ExpenseWriter
	ports.ExpenseDeleter
	ports.CategoryStore
	ports.BudgetStore
	ports.GoalStore
	ports.ForecastReader
	ports.Assistant
	ports.Exporter
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult is a ready backend. Auth is nil when the backend has no
// user accounts; Cleanup, when set, must run on shutdown.
type BackendResult struct {
	Type    BackendType
	Backend Backend
	Auth    ports.Authenticator
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory opens the backend named by Config.Type.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// api
	APIBaseURL      string
	APIToken        string
	UpstreamTimeout time.Duration

	// Zone dates are read in
	Location *time.Location

	// sqlite, with optional broker notification
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// memory seed files
	DataDirectory string
}

type BackendType string

const (
	APIBackend    BackendType = "api"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}
