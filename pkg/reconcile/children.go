package reconcile

import (
	"context"

	"github.com/pkg/errors"
	"github.com/wI2L/jsondiff"

	"inventory/models"
	"inventory/pkg/ledger"
	"inventory/pkg/policy"
	"inventory/pkg/store"
)

type child[T any] interface {
	*T
	RowID() uint
	OwnerID() uint
}

// childKind describes how one child collection maps onto its rows.
type childKind[T any, I any] struct {
	name    string
	rows    store.Records[T]
	entryID func(I) *uint
	create  func(parent uint, in I) *T
	header  func(row *T, in I)
	// status returns the status link an entry asks for, nil when the kind
	// has no status.
	status func(in I) *uint

	// Set for assignable kinds only.
	assignee func(row *T) **uint
	wanted   func(in I) *uint
	ref      func(id uint) ledger.ChildRef
}

func (k childKind[T, I]) assignable() bool { return k.assignee != nil }

// reconcileChildren applies one collection snapshot to the children of
// parent: deletes first, then updates and creates in data order.
func reconcileChildren[T any, I any, P child[T]](ctx context.Context, e *Engine, actor policy.Role, parent uint, k childKind[T, I], c Collection[I], res *Result) error {
	out := res.collection(k.name)
	deletes := c.deletes()

	if policy.CanDeleteChild(actor) {
		done := make(map[uint]bool, len(deletes))
		for _, id := range c.Delete {
			if done[id] {
				continue
			}
			done[id] = true
			if _, err := owned[T, P](ctx, k.rows, parent, id); err != nil {
				return err
			}
			if err := k.rows.Delete(ctx, id); err != nil {
				return err
			}
			out.Deleted = append(out.Deleted, id)
		}
	}

	canHeader := policy.CanEditChildHeaderFields(actor)
	canAssign := k.assignable() && policy.CanEditAssignee(actor)
	for _, in := range c.Data {
		id := k.entryID(in)
		if id == nil {
			if !policy.CanCreateChild(actor) {
				continue
			}
			if err := e.resolveLinks(ctx, k.statusOf(in), k.wantedOf(in)); err != nil {
				return err
			}
			row := k.create(parent, in)
			if err := k.rows.Create(ctx, row); err != nil {
				return err
			}
			rowID := P(row).RowID()
			out.Created = append(out.Created, rowID)
			if k.assignable() {
				recs, err := e.ledger.Record(ctx, k.ref(rowID), nil, *k.assignee(row))
				res.Assignments = append(res.Assignments, recs...)
				if err != nil {
					return err
				}
			}
			continue
		}
		if deletes[*id] {
			out.Skipped = append(out.Skipped, *id)
			continue
		}
		if !canHeader && !canAssign {
			continue
		}

		row, err := owned[T, P](ctx, k.rows, parent, *id)
		if err != nil {
			return err
		}
		before := *row
		var status, assignee *uint
		if canHeader {
			status = k.statusOf(in)
		}
		if canAssign {
			if want := link(k.wanted(in)); !sameLink(*k.assignee(row), want) {
				assignee = want
			}
		}
		if err := e.resolveLinks(ctx, status, assignee); err != nil {
			return err
		}
		if canHeader {
			k.header(row, in)
		}
		if canAssign {
			slot := k.assignee(row)
			want := link(k.wanted(in))
			recs, err := e.ledger.Record(ctx, k.ref(*id), *slot, want)
			res.Assignments = append(res.Assignments, recs...)
			if err != nil {
				return err
			}
			*slot = want
		}
		patch, err := jsondiff.Compare(before, *row)
		if err != nil {
			return errors.Wrapf(err, "diff %s %d", k.name, *id)
		}
		if err := k.rows.Update(ctx, row); err != nil {
			return err
		}
		if len(patch) > 0 {
			out.Updated[*id] = patch
		}
	}
	return nil
}

// owned loads child id and checks it belongs to parent.
func owned[T any, P child[T]](ctx context.Context, rows store.Records[T], parent, id uint) (*T, error) {
	row, err := rows.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if P(row).OwnerID() != parent {
		return nil, errors.Wrapf(store.ErrNotFound, "%T %d under parent %d", *row, id, parent)
	}
	return row, nil
}

func (k childKind[T, I]) statusOf(in I) *uint {
	if k.status == nil {
		return nil
	}
	return link(k.status(in))
}

func (k childKind[T, I]) wantedOf(in I) *uint {
	if !k.assignable() {
		return nil
	}
	return link(k.wanted(in))
}

// resolveLinks checks that the status and assignee an entry points at exist.
// It runs before the entry is written or any assignment is recorded.
func (e *Engine) resolveLinks(ctx context.Context, status, assignee *uint) error {
	if status != nil {
		if _, err := e.store.Statuses.Get(ctx, *status); err != nil {
			return errors.Wrap(err, "status")
		}
	}
	if assignee != nil {
		if _, err := e.store.Users.Get(ctx, *assignee); err != nil {
			return errors.Wrap(err, "assignee")
		}
	}
	return nil
}

func sameLink(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// link normalizes an optional reference: nil and zero both mean unset.
func link(v *uint) *uint {
	if v == nil || *v == 0 {
		return nil
	}
	id := *v
	return &id
}

func (e *Engine) hardwareInstances() childKind[models.HardwareInstance, HardwareInstanceInput] {
	return childKind[models.HardwareInstance, HardwareInstanceInput]{
		name:    "instances",
		rows:    e.store.HardwareInstances,
		entryID: func(in HardwareInstanceInput) *uint { return in.ID },
		create: func(parent uint, in HardwareInstanceInput) *models.HardwareInstance {
			return &models.HardwareInstance{
				HardwareID:      parent,
				SerialNumber:    in.SerialNumber,
				ProcurementDate: models.MustDate(in.ProcurementDate),
				StatusID:        link(in.Status),
				AssigneeID:      link(in.Assignee),
			}
		},
		header: func(row *models.HardwareInstance, in HardwareInstanceInput) {
			row.SerialNumber = in.SerialNumber
			row.ProcurementDate = models.MustDate(in.ProcurementDate)
			if s := link(in.Status); s != nil {
				row.StatusID = s
			}
		},
		status:   func(in HardwareInstanceInput) *uint { return in.Status },
		assignee: func(row *models.HardwareInstance) **uint { return &row.AssigneeID },
		wanted:   func(in HardwareInstanceInput) *uint { return in.Assignee },
		ref:      ledger.HardwareRef,
	}
}

func (e *Engine) softwareInstances() childKind[models.SoftwareInstance, SoftwareInstanceInput] {
	return childKind[models.SoftwareInstance, SoftwareInstanceInput]{
		name:    "instances",
		rows:    e.store.SoftwareInstances,
		entryID: func(in SoftwareInstanceInput) *uint { return in.ID },
		create: func(parent uint, in SoftwareInstanceInput) *models.SoftwareInstance {
			return &models.SoftwareInstance{
				SoftwareID: parent,
				SerialKey:  in.SerialKey,
				StatusID:   link(in.Status),
				AssigneeID: link(in.Assignee),
			}
		},
		header: func(row *models.SoftwareInstance, in SoftwareInstanceInput) {
			row.SerialKey = in.SerialKey
			if s := link(in.Status); s != nil {
				row.StatusID = s
			}
		},
		status:   func(in SoftwareInstanceInput) *uint { return in.Status },
		assignee: func(row *models.SoftwareInstance) **uint { return &row.AssigneeID },
		wanted:   func(in SoftwareInstanceInput) *uint { return in.Assignee },
		ref:      ledger.SoftwareRef,
	}
}

func (e *Engine) subscriptions() childKind[models.Subscription, SubscriptionInput] {
	return childKind[models.Subscription, SubscriptionInput]{
		name:    "subscriptions",
		rows:    e.store.Subscriptions,
		entryID: func(in SubscriptionInput) *uint { return in.ID },
		create: func(parent uint, in SubscriptionInput) *models.Subscription {
			return &models.Subscription{
				SoftwareID:       parent,
				Start:            models.MustDate(in.Start),
				End:              models.MustDate(in.End),
				NumberOfLicenses: *in.NumberOfLicenses,
			}
		},
		header: func(row *models.Subscription, in SubscriptionInput) {
			row.Start = models.MustDate(in.Start)
			row.End = models.MustDate(in.End)
			row.NumberOfLicenses = *in.NumberOfLicenses
		},
	}
}
