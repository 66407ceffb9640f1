package reconcile

import "strings"

// Collection is one child collection of a detail document: the full current
// snapshot of the children plus the ids to remove.
type Collection[T any] struct {
	Data   []T    `json:"data"`
	Delete []uint `json:"delete"`
}

// deletes returns the delete list as a set.
func (c Collection[T]) deletes() map[uint]bool {
	m := make(map[uint]bool, len(c.Delete))
	for _, id := range c.Delete {
		m[id] = true
	}
	return m
}

type HardwareInput struct {
	Name        string `json:"name" validate:"required"`
	Brand       string `json:"brand" validate:"required"`
	Type        string `json:"type" validate:"required"`
	ModelNumber string `json:"model_number" validate:"required"`
	Description string `json:"description" validate:"required"`
	// ForDeletion is applied for every writing role when present.
	ForDeletion *bool            `json:"for_deletion"`
	One2m       HardwareChildren `json:"one2m"`

	decoded *typeErrors
}

type HardwareChildren struct {
	Instances Collection[HardwareInstanceInput] `json:"instances"`
}

type HardwareInstanceInput struct {
	ID              *uint  `json:"id"`
	SerialNumber    string `json:"serial_number" validate:"required"`
	ProcurementDate string `json:"procurement_date" validate:"required,datetime=2006-01-02"`
	Status          *uint  `json:"status"`
	Assignee        *uint  `json:"assignee"`
	// Hardware is accepted for symmetry with the read shape and ignored;
	// children always attach to the asset in the URL.
	Hardware *uint `json:"hardware"`
}

type SoftwareInput struct {
	Name           string           `json:"name" validate:"required"`
	Brand          string           `json:"brand" validate:"required"`
	VersionNumber  string           `json:"version_number" validate:"required"`
	Description    string           `json:"description" validate:"required"`
	ExpirationDate string           `json:"expiration_date" validate:"required,datetime=2006-01-02"`
	One2m          SoftwareChildren `json:"one2m"`

	decoded *typeErrors
}

type SoftwareChildren struct {
	Instances     Collection[SoftwareInstanceInput] `json:"instances"`
	Subscriptions Collection[SubscriptionInput]     `json:"subscriptions"`
}

type SoftwareInstanceInput struct {
	ID        *uint  `json:"id"`
	SerialKey string `json:"serial_key" validate:"required"`
	Status    *uint  `json:"status"`
	Assignee  *uint  `json:"assignee"`
	Software  *uint  `json:"software"`
}

type SubscriptionInput struct {
	ID               *uint  `json:"id"`
	Start            string `json:"start" validate:"required,datetime=2006-01-02"`
	End              string `json:"end" validate:"required,datetime=2006-01-02"`
	NumberOfLicenses *int   `json:"number_of_licenses" validate:"required,gte=0"`
	Software         *uint  `json:"software"`
}

func (in HardwareInput) normalized() HardwareInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Type = strings.TrimSpace(in.Type)
	in.ModelNumber = strings.TrimSpace(in.ModelNumber)
	in.Description = strings.TrimSpace(in.Description)
	data := make([]HardwareInstanceInput, len(in.One2m.Instances.Data))
	for i, d := range in.One2m.Instances.Data {
		d.SerialNumber = strings.TrimSpace(d.SerialNumber)
		d.ProcurementDate = strings.TrimSpace(d.ProcurementDate)
		data[i] = d
	}
	in.One2m.Instances.Data = data
	return in
}

func (in SoftwareInput) normalized() SoftwareInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.VersionNumber = strings.TrimSpace(in.VersionNumber)
	in.Description = strings.TrimSpace(in.Description)
	in.ExpirationDate = strings.TrimSpace(in.ExpirationDate)
	instances := make([]SoftwareInstanceInput, len(in.One2m.Instances.Data))
	for i, d := range in.One2m.Instances.Data {
		d.SerialKey = strings.TrimSpace(d.SerialKey)
		instances[i] = d
	}
	in.One2m.Instances.Data = instances
	subs := make([]SubscriptionInput, len(in.One2m.Subscriptions.Data))
	for i, d := range in.One2m.Subscriptions.Data {
		d.Start = strings.TrimSpace(d.Start)
		d.End = strings.TrimSpace(d.End)
		subs[i] = d
	}
	in.One2m.Subscriptions.Data = subs
	return in
}
