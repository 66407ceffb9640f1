package models

import "time"

// UserType is the master table behind a user's role. IDs are fixed (1 root
// admin .. 5 viewer) and seeded at migration time.
type UserType struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
	Label     string    `gorm:"size:32;uniqueIndex;not null" json:"label"`
}

func (t *UserType) RowID() uint      { return t.ID }
func (t *UserType) SetRowID(id uint) { t.ID = id }
