package models

import "github.com/google/uuid"

type RelationshipStatus string

const (
	RelationshipPending  RelationshipStatus = "pending"
	RelationshipAccepted RelationshipStatus = "accepted"
	RelationshipDeclined RelationshipStatus = "declined"
)

// CoachPlayerRelationship links a coach to a player. Only accepted rows
// count for visibility bypass; pending and declined never do.
type CoachPlayerRelationship struct {
	BaseModel
	CoachID     uuid.UUID          `json:"coachID" gorm:"type:uuid;not null;index;uniqueIndex:idx_coach_player"`
	PlayerID    uuid.UUID          `json:"playerID" gorm:"type:uuid;not null;index;uniqueIndex:idx_coach_player"`
	InvitedByID uuid.UUID          `json:"invitedByID" gorm:"type:uuid;not null"`
	Status      RelationshipStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`

	Coach  User `json:"coach,omitempty" gorm:"foreignKey:CoachID;references:ID"`
	Player User `json:"player,omitempty" gorm:"foreignKey:PlayerID;references:ID"`
}

func (CoachPlayerRelationship) TableName() string {
	return "coach_player_relationships"
}
