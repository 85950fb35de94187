package models

import (
	"time"

	"gorm.io/datatypes"
)

// Config sources
const (
	SourceJSON     = "json"
	SourceWorkbook = "workbook"
)

// RoomConfig is the commissioning payload of a room type. There is at most
// one per (ProjectID, RoomTypeID).
type RoomConfig struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	ProjectID  string         `gorm:"size:36;not null;uniqueIndex:idx_room_configs_owner,priority:1" json:"projectId"`
	RoomTypeID string         `gorm:"size:36;not null;uniqueIndex:idx_room_configs_owner,priority:2" json:"roomTypeId"`
	TypeCode   string         `gorm:"size:64;not null" json:"typeCode"`
	Config     datatypes.JSON `gorm:"type:json;not null" json:"config"`
	Source     string         `gorm:"size:16;not null;default:'json'" json:"source"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`

	Project  *Project  `gorm:"foreignKey:ProjectID" json:"-"`
	RoomType *RoomType `gorm:"foreignKey:RoomTypeID" json:"-"`
}

// TableName specifies the table name for RoomConfig model
func (RoomConfig) TableName() string {
	return "room_configs"
}
