package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/models"
)

// Capability is the maximum action tier a viewer holds on a resource.
// The tiers nest: admin covers edit, edit covers comment, and so on.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityView
	CapabilityComment
	CapabilityEdit
	CapabilityAdmin
)

func (c Capability) String() string {
	switch c {
	case CapabilityView:
		return "view"
	case CapabilityComment:
		return "comment"
	case CapabilityEdit:
		return "edit"
	case CapabilityAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Satisfies reports whether the capability covers the given minimum tier.
// A minimum of none is never satisfied; no action requires less than view.
func (c Capability) Satisfies(min Capability) bool {
	return min > CapabilityNone && c >= min
}

func CapabilityForLevel(level models.PermissionLevel) (Capability, bool) {
	switch level {
	case models.PermissionView:
		return CapabilityView, true
	case models.PermissionComment:
		return CapabilityComment, true
	case models.PermissionEdit:
		return CapabilityEdit, true
	case models.PermissionAdmin:
		return CapabilityAdmin, true
	default:
		return CapabilityNone, false
	}
}

// Evaluate is the single authorization decision for resources. It is a pure
// function over already-fetched state and never fails: missing input means
// no capability. Ownership always yields admin; a public flag floors the
// result at view; an explicit grant can only raise the result, never lower it.
func Evaluate(viewerID uuid.UUID, resource *models.Resource, grants []models.ShareGrant) Capability {
	if resource == nil || viewerID == uuid.Nil {
		return CapabilityNone
	}

	if resource.OwnerID == viewerID {
		return CapabilityAdmin
	}

	capability := CapabilityNone
	if resource.IsPublic {
		capability = CapabilityView
	}

	for _, grant := range grants {
		if grant.ResourceID != resource.ID || grant.GranteeID != viewerID {
			continue
		}
		if level, ok := CapabilityForLevel(grant.Level); ok && level > capability {
			capability = level
		}
	}

	return capability
}

type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// Capability fetches the resource and its grants for the viewer and runs
// Evaluate. State is read fresh on every call: a revoke completed by a
// previous request must be visible here, so nothing is cached.
func (a *AccessService) Capability(ctx context.Context, viewerID uuid.UUID, resourceID uuid.UUID) Capability {
	var resource models.Resource
	if err := a.DB.WithContext(ctx).First(&resource, "id = ?", resourceID).Error; err != nil {
		return CapabilityNone
	}

	var grants []models.ShareGrant
	if err := a.DB.WithContext(ctx).
		Where("resource_id = ? AND grantee_id = ?", resourceID, viewerID).
		Find(&grants).Error; err != nil {
		return CapabilityNone
	}

	return Evaluate(viewerID, &resource, grants)
}

func (a *AccessService) HasAccess(ctx context.Context, viewerID uuid.UUID, resourceID uuid.UUID, required models.PermissionLevel) bool {
	min, ok := CapabilityForLevel(required)
	if !ok {
		return false
	}
	return a.Capability(ctx, viewerID, resourceID).Satisfies(min)
}
