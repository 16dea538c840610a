package store

import (
	"context"

	ierrors "github.com/gajni/gajni-go/internal/errors"
	"github.com/gajni/gajni-go/internal/types"
)

// Disabled is the remote store used when the backend is not configured.
// Every call fails with a config error, which the sync core absorbs the
// same way it absorbs any other store failure, leaving the app local-only.
type Disabled struct{}

// NewDisabled returns the no-backend store variant.
func NewDisabled() *Disabled { return &Disabled{} }

func (*Disabled) ListByUser(context.Context, string) ([]types.MemoryRecord, error) {
	return nil, ierrors.NewConfigError("list memories")
}

func (*Disabled) Create(context.Context, string, string, string) (*types.MemoryRecord, error) {
	return nil, ierrors.NewConfigError("create memory")
}

func (*Disabled) Update(context.Context, string, string, types.RecordPatch) error {
	return ierrors.NewConfigError("update memory")
}

func (*Disabled) Delete(context.Context, string, string) error {
	return ierrors.NewConfigError("delete memory")
}
