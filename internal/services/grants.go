package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/models"
)

// GrantService is the authoritative registry of share grants. Only the
// resource owner may mutate the share list; a grantee cannot remove their
// own access.
type GrantService struct {
	DB *gorm.DB
}

func NewGrantService(db *gorm.DB) *GrantService {
	return &GrantService{DB: db}
}

// Grant upserts the grant for (resource, grantee): a repeat call for the
// same pair replaces the level instead of creating a duplicate row. The
// pair also carries a unique index, so a create racing another writer
// surfaces as ErrConflict rather than a ghost duplicate.
func (s *GrantService) Grant(ctx context.Context, resourceID, grantorID, granteeID uuid.UUID, level models.PermissionLevel) (*models.ShareGrant, error) {
	if _, ok := CapabilityForLevel(level); !ok {
		return nil, fmt.Errorf("%w: unknown permission level %q", ErrValidation, level)
	}

	var resource models.Resource
	if err := s.DB.WithContext(ctx).First(&resource, "id = ?", resourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if resource.OwnerID != grantorID {
		return nil, ErrForbidden
	}
	if granteeID == resource.OwnerID {
		return nil, fmt.Errorf("%w: cannot grant to the resource owner", ErrValidation)
	}

	var grantee models.User
	if err := s.DB.WithContext(ctx).First(&grantee, "id = ?", granteeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var grant models.ShareGrant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ShareGrant
		err := tx.Where("resource_id = ? AND grantee_id = ?", resourceID, granteeID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"level":      level,
				"grantor_id": grantorID,
			}).Error; err != nil {
				return err
			}
			return tx.First(&grant, "id = ?", existing.ID).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			grant = models.ShareGrant{
				ResourceID: resourceID,
				GranteeID:  granteeID,
				GrantorID:  grantorID,
				Level:      level,
			}
			return tx.Create(&grant).Error
		default:
			return err
		}
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}

	return &grant, nil
}

// Revoke removes a grant. Only the resource owner may revoke; once Revoke
// returns nil, a fresh Evaluate for the former grantee excludes the revoked
// level (ownership and the public flag aside).
func (s *GrantService) Revoke(ctx context.Context, grantID, requesterID uuid.UUID) error {
	var grant models.ShareGrant
	if err := s.DB.WithContext(ctx).First(&grant, "id = ?", grantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var resource models.Resource
	if err := s.DB.WithContext(ctx).First(&resource, "id = ?", grant.ResourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if resource.OwnerID != requesterID {
		return ErrForbidden
	}

	return s.DB.WithContext(ctx).Delete(&models.ShareGrant{}, "id = ?", grant.ID).Error
}

func (s *GrantService) ListFor(ctx context.Context, resourceID uuid.UUID) ([]models.ShareGrant, error) {
	var grants []models.ShareGrant
	err := s.DB.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Preload("Grantee").
		Preload("Grantor").
		Order("created_at ASC").
		Find(&grants).Error
	return grants, err
}
