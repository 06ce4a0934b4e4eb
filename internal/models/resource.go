package models

import "github.com/google/uuid"

// Resource is a shareable unit: an uploaded drill video, playbook, schedule
// or any other file a coach or player owns. Exactly one owner at all times;
// ownership never transfers implicitly.
type Resource struct {
	BaseModel
	Name       string                 `json:"name" gorm:"type:varchar(255);not null"`
	MimeType   string                 `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size       int64                  `json:"size" gorm:"not null;default:0"`
	OwnerID    uuid.UUID              `json:"ownerID" gorm:"type:uuid;not null;index"`
	IsPublic   bool                   `json:"isPublic" gorm:"not null;default:false;index"`
	StorageKey string                 `json:"-" gorm:"type:text"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`

	Owner    User         `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Grants   []ShareGrant `json:"-" gorm:"foreignKey:ResourceID"`
	Comments []Comment    `json:"-" gorm:"foreignKey:ResourceID"`
}

func (Resource) TableName() string {
	return "resources"
}
