package models

import (
	"time"
)

// User model. Login happens through a short-lived emailed code, so no
// password is stored.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	UserTypeID   uint       `gorm:"column:type;index;not null" json:"type"`
	UserType     *UserType  `gorm:"foreignKey:UserTypeID;references:ID" json:"-"`
	AuthCodeHash []byte     `json:"-"`
	AuthExpiry   *time.Time `json:"-"`
}

func (u *User) RowID() uint      { return u.ID }
func (u *User) SetRowID(id uint) { u.ID = id }
