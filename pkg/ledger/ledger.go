// Package ledger writes the assignment audit trail. It is write-only: the
// current holder of an instance is always read off the instance itself.
package ledger

import (
	"context"

	"github.com/pkg/errors"

	"inventory/models"
)

// Kind tells which instance table a ChildRef points into.
type Kind int

const (
	HardwareInstance Kind = iota + 1
	SoftwareInstance
)

// ChildRef references exactly one hardware or software instance.
type ChildRef struct {
	Kind Kind
	ID   uint
}

func HardwareRef(id uint) ChildRef { return ChildRef{Kind: HardwareInstance, ID: id} }
func SoftwareRef(id uint) ChildRef { return ChildRef{Kind: SoftwareInstance, ID: id} }

func (r ChildRef) record(user uint, assignmentType int) models.AssignmentLog {
	rec := models.AssignmentLog{UserID: user, AssignmentType: assignmentType}
	id := r.ID
	switch r.Kind {
	case HardwareInstance:
		rec.HardwareInstanceID = &id
	case SoftwareInstance:
		rec.SoftwareInstanceID = &id
	}
	return rec
}

// Transition compares an instance's assignee before and after an update and
// returns the records to append, in order. A nil or zero id means unassigned.
// A reassignment yields ASSIGN(new) followed by UNASSIGN(old).
func Transition(ref ChildRef, old, new *uint) []models.AssignmentLog {
	o, n := value(old), value(new)
	switch {
	case o == 0 && n == 0:
		return nil
	case o == 0:
		return []models.AssignmentLog{ref.record(n, models.AssignmentAssign)}
	case n == 0:
		return []models.AssignmentLog{ref.record(o, models.AssignmentUnassign)}
	case o == n:
		return nil
	}
	return []models.AssignmentLog{
		ref.record(n, models.AssignmentAssign),
		ref.record(o, models.AssignmentUnassign),
	}
}

func value(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}

// Appender is the only store operation the ledger needs.
type Appender interface {
	Create(ctx context.Context, row *models.AssignmentLog) error
}

// Ledger appends assignment records to a store.
type Ledger struct {
	store Appender
	// OnRecord, when set, is called after each appended record.
	OnRecord func(models.AssignmentLog)
}

func New(store Appender) *Ledger {
	return &Ledger{store: store}
}

// Record appends the records Transition produces for ref and returns them
// with their ids set. Records appended before a failing one stay appended.
func (l *Ledger) Record(ctx context.Context, ref ChildRef, old, new *uint) ([]models.AssignmentLog, error) {
	recs := Transition(ref, old, new)
	for i := range recs {
		if err := l.store.Create(ctx, &recs[i]); err != nil {
			return recs[:i], errors.Wrapf(err, "append assignment record for instance %d", ref.ID)
		}
		if l.OnRecord != nil {
			l.OnRecord(recs[i])
		}
	}
	return recs, nil
}
