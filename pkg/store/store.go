// Package store is the keyed record store behind the inventory: one
// Records table per row type, each handing out stable integer ids.
//
// Two backends exist. NewGorm talks to Postgres through gorm; NewMemory keeps
// rows in process and backs tests and the "memory" store setting.
package store

import (
	"context"

	"github.com/pkg/errors"

	"inventory/models"
	"inventory/pkg/query"
)

var (
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrUnsupportedFilter is returned for unknown filter fields or operators.
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

// Records is a keyed table of T rows.
type Records[T any] interface {
	Create(ctx context.Context, row *T) error
	Get(ctx context.Context, id uint) (*T, error)
	// Update overwrites every column of an existing row.
	Update(ctx context.Context, row *T) error
	Delete(ctx context.Context, id uint) error
	// ListByParent returns the rows owned by parentID ordered by id.
	ListByParent(ctx context.Context, parentID uint) ([]T, error)
	// Search returns one page of rows plus the total number of matches.
	Search(ctx context.Context, s query.Search) ([]T, int64, error)
}

// Store bundles every table of the inventory.
type Store struct {
	UserTypes         Records[models.UserType]
	Users             Records[models.User]
	RefreshTokens     Records[models.RefreshToken]
	Statuses          Records[models.Status]
	Hardware          Records[models.Hardware]
	HardwareInstances Records[models.HardwareInstance]
	Software          Records[models.Software]
	SoftwareInstances Records[models.SoftwareInstance]
	Subscriptions     Records[models.Subscription]
	AssignmentLogs    Records[models.AssignmentLog]
}

// First returns the first row matching field == value.
func First[T any](ctx context.Context, r Records[T], field string, value any) (*T, error) {
	s := query.Search{Rows: 1, SortOrder: 1}.With(field, query.OpEqual, value)
	rows, _, err := r.Search(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}
