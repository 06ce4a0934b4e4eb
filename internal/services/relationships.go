package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/models"
)

// Relationship is a viewer's standing toward a profile subject. The
// coach_of verdict bypasses profile redaction only — it never implies any
// capability on the subject's shared resources.
type Relationship string

const (
	RelationshipSelf      Relationship = "self"
	RelationshipCoachOf   Relationship = "coach_of"
	RelationshipUnrelated Relationship = "unrelated"
)

type RelationshipService struct {
	DB *gorm.DB
}

func NewRelationshipService(db *gorm.DB) *RelationshipService {
	return &RelationshipService{DB: db}
}

// Resolve reads relationship state fresh on every call; an invitation
// accepted or revoked between requests must be reflected immediately. Only
// accepted rows count, and direction matters: the viewer must sit on the
// coach side of the link.
func (s *RelationshipService) Resolve(ctx context.Context, viewerID, subjectID uuid.UUID) Relationship {
	if viewerID == uuid.Nil || subjectID == uuid.Nil {
		return RelationshipUnrelated
	}
	if viewerID == subjectID {
		return RelationshipSelf
	}

	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.CoachPlayerRelationship{}).
		Where("coach_id = ? AND player_id = ? AND status = ?", viewerID, subjectID, models.RelationshipAccepted).
		Count(&count).Error
	if err != nil || count == 0 {
		return RelationshipUnrelated
	}

	return RelationshipCoachOf
}
