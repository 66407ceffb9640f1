// Package reconcile applies detail-document updates of hardware and software
// assets: the parent fields plus full snapshots of every child collection.
//
// Each request is checked against the actor's role. Operations the actor
// cannot perform at all fail with ErrUnauthorized; sub-operations it lacks a
// capability for are skipped. Shape errors are collected up front so a
// malformed request changes nothing. The apply phase runs without a
// transaction: a store failure part way leaves earlier writes in place.
package reconcile

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"

	"inventory/models"
	"inventory/pkg/ledger"
	"inventory/pkg/policy"
	"inventory/pkg/store"
)

// Engine reconciles asset documents against a store.
type Engine struct {
	store  *store.Store
	ledger *ledger.Ledger
	log    logrus.FieldLogger
}

func New(s *store.Store, l *ledger.Ledger, log logrus.FieldLogger) *Engine {
	if l == nil {
		l = ledger.New(s.AssignmentLogs)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{store: s, ledger: l, log: log}
}

// Result describes what one reconcile call changed.
type Result struct {
	// Parent is the JSON patch applied to the parent row, empty when the
	// actor could not edit it or nothing differed.
	Parent      jsondiff.Patch               `json:"parent,omitempty"`
	Collections map[string]*CollectionResult `json:"collections"`
	// Assignments are the audit records appended, in order.
	Assignments []models.AssignmentLog `json:"assignments,omitempty"`
}

type CollectionResult struct {
	Created []uint                  `json:"created,omitempty"`
	Updated map[uint]jsondiff.Patch `json:"updated,omitempty"`
	Deleted []uint                  `json:"deleted,omitempty"`
	// Skipped holds ids present in both the data and the delete list.
	Skipped []uint `json:"skipped,omitempty"`
}

func newResult() *Result {
	return &Result{Collections: map[string]*CollectionResult{}}
}

func (r *Result) collection(name string) *CollectionResult {
	c, ok := r.Collections[name]
	if !ok {
		c = &CollectionResult{Updated: map[uint]jsondiff.Patch{}}
		r.Collections[name] = c
	}
	return c
}

func (r *Result) fields() logrus.Fields {
	f := logrus.Fields{"assignments": len(r.Assignments), "parent_ops": len(r.Parent)}
	for name, c := range r.Collections {
		f[name+"_created"] = len(c.Created)
		f[name+"_updated"] = len(c.Updated)
		f[name+"_deleted"] = len(c.Deleted)
	}
	return f
}

// ReconcileHardware applies in to hardware id on behalf of actor.
func (e *Engine) ReconcileHardware(ctx context.Context, actor policy.Role, id uint, in HardwareInput) (*Result, error) {
	if !policy.CanWrite(actor) {
		return nil, ErrUnauthorized
	}
	in = in.normalized()
	if err := in.check(); err != nil {
		return nil, err
	}
	hw, err := e.store.Hardware.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := newResult()
	before := *hw
	apply := false
	if policy.CanEditParentFields(actor) {
		hw.Name, hw.Brand, hw.Type = in.Name, in.Brand, in.Type
		hw.ModelNumber, hw.Description = in.ModelNumber, in.Description
		apply = true
	}
	if in.ForDeletion != nil {
		hw.ForDeletion = *in.ForDeletion
		apply = true
	}
	if apply {
		if res.Parent, err = jsondiff.Compare(before, *hw); err != nil {
			return nil, errors.Wrap(err, "diff hardware")
		}
		if err := e.store.Hardware.Update(ctx, hw); err != nil {
			return res, err
		}
	}

	if err := reconcileChildren(ctx, e, actor, id, e.hardwareInstances(), in.One2m.Instances, res); err != nil {
		return res, err
	}
	e.log.WithFields(res.fields()).WithField("hardware", id).Info("hardware reconciled")
	return res, nil
}

// ReconcileSoftware applies in to software id on behalf of actor.
func (e *Engine) ReconcileSoftware(ctx context.Context, actor policy.Role, id uint, in SoftwareInput) (*Result, error) {
	if !policy.CanWrite(actor) {
		return nil, ErrUnauthorized
	}
	in = in.normalized()
	if err := in.check(); err != nil {
		return nil, err
	}
	sw, err := e.store.Software.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := newResult()
	if policy.CanEditParentFields(actor) {
		before := *sw
		sw.Name, sw.Brand, sw.VersionNumber = in.Name, in.Brand, in.VersionNumber
		sw.Description = in.Description
		sw.ExpirationDate = models.MustDate(in.ExpirationDate)
		if res.Parent, err = jsondiff.Compare(before, *sw); err != nil {
			return nil, errors.Wrap(err, "diff software")
		}
		if err := e.store.Software.Update(ctx, sw); err != nil {
			return res, err
		}
	}

	if err := reconcileChildren(ctx, e, actor, id, e.softwareInstances(), in.One2m.Instances, res); err != nil {
		return res, err
	}
	if err := reconcileChildren(ctx, e, actor, id, e.subscriptions(), in.One2m.Subscriptions, res); err != nil {
		return res, err
	}
	e.log.WithFields(res.fields()).WithField("software", id).Info("software reconciled")
	return res, nil
}

// CreateHardware stores a whole hardware document; every child is new.
func (e *Engine) CreateHardware(ctx context.Context, actor policy.Role, in HardwareInput) (uint, error) {
	if !policy.CanManageAssets(actor) {
		return 0, ErrUnauthorized
	}
	in = in.normalized()
	if err := in.check(); err != nil {
		return 0, err
	}
	hw := &models.Hardware{
		Name:        in.Name,
		Brand:       in.Brand,
		Type:        in.Type,
		ModelNumber: in.ModelNumber,
		Description: in.Description,
	}
	if in.ForDeletion != nil {
		hw.ForDeletion = *in.ForDeletion
	}
	if err := e.store.Hardware.Create(ctx, hw); err != nil {
		return 0, err
	}
	children := Collection[HardwareInstanceInput]{Data: withoutIDs(in.One2m.Instances.Data, func(d *HardwareInstanceInput) { d.ID = nil })}
	res := newResult()
	if err := reconcileChildren(ctx, e, actor, hw.ID, e.hardwareInstances(), children, res); err != nil {
		return hw.ID, err
	}
	e.log.WithFields(res.fields()).WithField("hardware", hw.ID).Info("hardware created")
	return hw.ID, nil
}

// CreateSoftware stores a whole software document; every child is new.
func (e *Engine) CreateSoftware(ctx context.Context, actor policy.Role, in SoftwareInput) (uint, error) {
	if !policy.CanManageAssets(actor) {
		return 0, ErrUnauthorized
	}
	in = in.normalized()
	if err := in.check(); err != nil {
		return 0, err
	}
	sw := &models.Software{
		Name:           in.Name,
		Brand:          in.Brand,
		VersionNumber:  in.VersionNumber,
		Description:    in.Description,
		ExpirationDate: models.MustDate(in.ExpirationDate),
	}
	if err := e.store.Software.Create(ctx, sw); err != nil {
		return 0, err
	}
	res := newResult()
	instances := Collection[SoftwareInstanceInput]{Data: withoutIDs(in.One2m.Instances.Data, func(d *SoftwareInstanceInput) { d.ID = nil })}
	if err := reconcileChildren(ctx, e, actor, sw.ID, e.softwareInstances(), instances, res); err != nil {
		return sw.ID, err
	}
	subs := Collection[SubscriptionInput]{Data: withoutIDs(in.One2m.Subscriptions.Data, func(d *SubscriptionInput) { d.ID = nil })}
	if err := reconcileChildren(ctx, e, actor, sw.ID, e.subscriptions(), subs, res); err != nil {
		return sw.ID, err
	}
	e.log.WithFields(res.fields()).WithField("software", sw.ID).Info("software created")
	return sw.ID, nil
}

// DeleteHardware removes a hardware asset and its instances. Assignment
// records are kept.
func (e *Engine) DeleteHardware(ctx context.Context, actor policy.Role, id uint) error {
	if !policy.CanManageAssets(actor) {
		return ErrUnauthorized
	}
	if _, err := e.store.Hardware.Get(ctx, id); err != nil {
		return err
	}
	n, err := deleteChildren(ctx, e.store.HardwareInstances, id)
	if err != nil {
		return err
	}
	if err := e.store.Hardware.Delete(ctx, id); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{"hardware": id, "instances": n}).Info("hardware deleted")
	return nil
}

// DeleteSoftware removes a software asset with its instances and
// subscriptions. Assignment records are kept.
func (e *Engine) DeleteSoftware(ctx context.Context, actor policy.Role, id uint) error {
	if !policy.CanManageAssets(actor) {
		return ErrUnauthorized
	}
	if _, err := e.store.Software.Get(ctx, id); err != nil {
		return err
	}
	n, err := deleteChildren(ctx, e.store.SoftwareInstances, id)
	if err != nil {
		return err
	}
	m, err := deleteChildren(ctx, e.store.Subscriptions, id)
	if err != nil {
		return err
	}
	if err := e.store.Software.Delete(ctx, id); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{"software": id, "instances": n, "subscriptions": m}).Info("software deleted")
	return nil
}

func deleteChildren[T any, P child[T]](ctx context.Context, rows store.Records[T], parent uint) (int, error) {
	list, err := rows.ListByParent(ctx, parent)
	if err != nil {
		return 0, err
	}
	for i := range list {
		if err := rows.Delete(ctx, P(&list[i]).RowID()); err != nil {
			return i, err
		}
	}
	return len(list), nil
}

func withoutIDs[T any](data []T, reset func(*T)) []T {
	out := make([]T, len(data))
	for i := range data {
		out[i] = data[i]
		reset(&out[i])
	}
	return out
}
