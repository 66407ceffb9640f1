package models

import "time"

// Hardware is the header record of a physical asset kind (e.g. a laptop model).
type Hardware struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Brand       string    `gorm:"size:255" json:"brand"`
	Type        string    `gorm:"size:255" json:"type"`
	ModelNumber string    `gorm:"size:255" json:"model_number"`
	Description string    `gorm:"type:text" json:"description"`
	// ForDeletion marks the asset for review before removal. Unlike the other
	// header fields it is writable by every role that may write at all.
	ForDeletion bool               `gorm:"default:false;not null" json:"for_deletion"`
	Instances   []HardwareInstance `gorm:"foreignKey:HardwareID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (Hardware) TableName() string { return "hardware" }

func (h *Hardware) RowID() uint      { return h.ID }
func (h *Hardware) SetRowID(id uint) { h.ID = id }

// HardwareInstance is one serial-numbered unit of a Hardware asset.
type HardwareInstance struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
	HardwareID      uint      `gorm:"index;not null" json:"hardware"`
	SerialNumber    string    `gorm:"size:255" json:"serial_number"`
	ProcurementDate Date      `json:"procurement_date"`
	StatusID        *uint     `gorm:"index" json:"status"`
	Status          *Status   `gorm:"foreignKey:StatusID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	AssigneeID      *uint     `gorm:"index" json:"assignee"`
	Assignee        *User     `gorm:"foreignKey:AssigneeID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
}

func (HardwareInstance) TableName() string { return "hardware_instances" }

func (i *HardwareInstance) RowID() uint      { return i.ID }
func (i *HardwareInstance) SetRowID(id uint) { i.ID = id }
func (i *HardwareInstance) OwnerID() uint    { return i.HardwareID }
