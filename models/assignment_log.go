package models

import "time"

// Assignment types.
const (
	AssignmentAssign   = 1
	AssignmentUnassign = 2
)

// AssignmentLog is an append-only audit entry written whenever an instance's
// assignee changes. Exactly one of the instance references is set. The
// references carry no foreign key so history outlives deleted instances.
type AssignmentLog struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	UserID             uint      `gorm:"index;not null" json:"user"`
	AssignmentType     int       `gorm:"not null;default:1" json:"assignment_type"`
	HardwareInstanceID *uint     `gorm:"index;check:chk_assignment_logs_target,(hardware_instance_id IS NULL) <> (software_instance_id IS NULL)" json:"hardware_instance"`
	SoftwareInstanceID *uint     `gorm:"index" json:"software_instance"`
}

func (l *AssignmentLog) RowID() uint      { return l.ID }
func (l *AssignmentLog) SetRowID(id uint) { l.ID = id }
