package models

import "time"

// Software is the header record of a licensed product.
type Software struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time          `json:"-"`
	UpdatedAt      time.Time          `json:"-"`
	Name           string             `gorm:"size:255;not null" json:"name"`
	Brand          string             `gorm:"size:255" json:"brand"`
	VersionNumber  string             `gorm:"size:64" json:"version_number"`
	Description    string             `gorm:"type:text" json:"description"`
	ExpirationDate Date               `gorm:"index" json:"expiration_date"`
	Instances      []SoftwareInstance `gorm:"foreignKey:SoftwareID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Subscriptions  []Subscription     `gorm:"foreignKey:SoftwareID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (Software) TableName() string { return "software" }

func (s *Software) RowID() uint      { return s.ID }
func (s *Software) SetRowID(id uint) { s.ID = id }

// SoftwareInstance is one license key of a Software asset.
type SoftwareInstance struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
	SoftwareID uint      `gorm:"index;not null" json:"software"`
	SerialKey  string    `gorm:"size:255" json:"serial_key"`
	StatusID   *uint     `gorm:"index" json:"status"`
	Status     *Status   `gorm:"foreignKey:StatusID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	AssigneeID *uint     `gorm:"index" json:"assignee"`
	Assignee   *User     `gorm:"foreignKey:AssigneeID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
}

func (i *SoftwareInstance) RowID() uint      { return i.ID }
func (i *SoftwareInstance) SetRowID(id uint) { i.ID = id }
func (i *SoftwareInstance) OwnerID() uint    { return i.SoftwareID }

// Subscription is a license term of a Software asset. It is never assigned.
type Subscription struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
	SoftwareID       uint      `gorm:"index;not null" json:"software"`
	Start            Date      `json:"start"`
	End              Date      `json:"end"`
	NumberOfLicenses int       `gorm:"not null;default:0;check:chk_subscriptions_licenses,number_of_licenses >= 0" json:"number_of_licenses"`
}

func (s *Subscription) RowID() uint      { return s.ID }
func (s *Subscription) SetRowID(id uint) { s.ID = id }
func (s *Subscription) OwnerID() uint    { return s.SoftwareID }
