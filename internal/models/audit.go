package models

import "time"

// AuditLog represents the audit_logs table
// Used for tracking every mutation of projects, room types and configs
type AuditLog struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Actor     string    `gorm:"size:255;index" json:"actor"`
	Action    string    `gorm:"size:100;not null" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
