package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/madoguchin/internal/call"
)

type CreateCallInput struct {
	ID        string
	ModelName string
	StartedAt time.Time
}

// CallRepository persists call records. The stored shape mirrors call.Call
// verbatim; other subsystems read the same record.
type CallRepository interface {
	CreateCall(ctx context.Context, input CreateCallInput) (*call.Call, error)
	GetCall(ctx context.Context, id string) (*call.Call, error)
	// SaveCall upserts a full snapshot of the call. Called after each
	// completed turn and on termination.
	SaveCall(ctx context.Context, c *call.Call) error
	UpdateCallStatus(ctx context.Context, id string, status call.Status, errorMessage string, endedAt *time.Time) error
}

// SettingsRepository reads the live-reloadable agent settings, including
// pricing. Implementations bootstrap defaults on first read.
type SettingsRepository interface {
	LoadSettings(ctx context.Context) (call.Settings, error)
}

type Repository interface {
	CallRepository
	SettingsRepository
}
