package models

import "time"

// Project is the top-level building record. Password gates access to the
// project from the commissioning tools and is stored as a bcrypt hash.
type Project struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Address   string    `gorm:"type:text;not null" json:"address"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Project model
func (Project) TableName() string {
	return "projects"
}

// ProjectPatch carries the fields of a partial project update; nil means
// "leave unchanged".
type ProjectPatch struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	Password *string `json:"password"`
}

// Empty reports whether the patch changes nothing.
func (p ProjectPatch) Empty() bool {
	return p.Name == nil && p.Address == nil && p.Password == nil
}
