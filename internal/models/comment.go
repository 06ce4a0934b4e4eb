package models

import "github.com/google/uuid"

// Comment carries no permission state of its own; authorization to create
// or delete one is derived from the parent resource's decision.
type Comment struct {
	BaseModel
	ResourceID uuid.UUID `json:"resourceID" gorm:"type:uuid;not null;index"`
	AuthorID   uuid.UUID `json:"authorID" gorm:"type:uuid;not null;index"`
	Body       string    `json:"body" gorm:"type:text;not null"`

	Resource Resource `json:"resource,omitempty" gorm:"foreignKey:ResourceID;references:ID"`
	Author   User     `json:"author,omitempty" gorm:"foreignKey:AuthorID;references:ID"`
}

func (Comment) TableName() string {
	return "comments"
}
