package reconcile

import (
	"context"

	"inventory/models"
	"inventory/pkg/status"
)

// Rows wraps a child collection on the read side.
type Rows[T any] struct {
	Data []T `json:"data"`
}

// HardwareDocument is the detail view of one hardware asset.
type HardwareDocument struct {
	models.Hardware
	One2m struct {
		Instances Rows[models.HardwareInstance] `json:"instances"`
	} `json:"one2m"`
}

// SoftwareDocument is the detail view of one software asset.
type SoftwareDocument struct {
	models.Software
	One2m struct {
		Instances     Rows[models.SoftwareInstance] `json:"instances"`
		Subscriptions Rows[models.Subscription]     `json:"subscriptions"`
	} `json:"one2m"`
}

// Hardware loads the detail document of hardware id.
func (e *Engine) Hardware(ctx context.Context, id uint) (*HardwareDocument, error) {
	hw, err := e.store.Hardware.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	instances, err := e.store.HardwareInstances.ListByParent(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range instances {
		instances[i].StatusID = status.ForDetail(instances[i].StatusID)
	}
	doc := &HardwareDocument{Hardware: *hw}
	doc.One2m.Instances.Data = nonNil(instances)
	return doc, nil
}

// Software loads the detail document of software id.
func (e *Engine) Software(ctx context.Context, id uint) (*SoftwareDocument, error) {
	sw, err := e.store.Software.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	instances, err := e.store.SoftwareInstances.ListByParent(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range instances {
		instances[i].StatusID = status.ForDetail(instances[i].StatusID)
	}
	subs, err := e.store.Subscriptions.ListByParent(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := &SoftwareDocument{Software: *sw}
	doc.One2m.Instances.Data = nonNil(instances)
	doc.One2m.Subscriptions.Data = nonNil(subs)
	return doc, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
