package models

// Status is an instance condition such as "Working" or "For Repair".
type Status struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Label string `gorm:"size:64;uniqueIndex;not null" json:"label"`
}

func (s *Status) RowID() uint      { return s.ID }
func (s *Status) SetRowID(id uint) { s.ID = id }
