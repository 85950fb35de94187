package models

import "time"

// RoomType is a named category of room inside a project. TypeCode is derived
// from Name and doubles as the room type's directory name.
type RoomType struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string    `gorm:"size:36;not null;uniqueIndex:idx_room_types_project_name,priority:1" json:"projectId"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_room_types_project_name,priority:2" json:"name"`
	TypeCode  string    `gorm:"size:64;not null;index" json:"typeCode"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"-"`
}

// TableName specifies the table name for RoomType model
func (RoomType) TableName() string {
	return "room_types"
}
