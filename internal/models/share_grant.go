package models

import "github.com/google/uuid"

type PermissionLevel string

const (
	PermissionView    PermissionLevel = "view"
	PermissionComment PermissionLevel = "comment"
	PermissionEdit    PermissionLevel = "edit"
	PermissionAdmin   PermissionLevel = "admin"
)

// ShareGrant gives one grantee a graded permission level on one resource.
// The (resource, grantee) pair is unique; re-granting replaces the level.
type ShareGrant struct {
	BaseModel
	ResourceID uuid.UUID       `json:"resourceID" gorm:"type:uuid;not null;index;uniqueIndex:idx_resource_grantee"`
	GranteeID  uuid.UUID       `json:"granteeID" gorm:"type:uuid;not null;index;uniqueIndex:idx_resource_grantee"`
	GrantorID  uuid.UUID       `json:"grantorID" gorm:"type:uuid;not null;index"`
	Level      PermissionLevel `json:"level" gorm:"type:varchar(20);not null;default:'view'"`

	Resource Resource `json:"resource,omitempty" gorm:"foreignKey:ResourceID;references:ID"`
	Grantee  User     `json:"grantee,omitempty" gorm:"foreignKey:GranteeID;references:ID"`
	Grantor  User     `json:"grantor,omitempty" gorm:"foreignKey:GrantorID;references:ID"`
}

func (ShareGrant) TableName() string {
	return "share_grants"
}
