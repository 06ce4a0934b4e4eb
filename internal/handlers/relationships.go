package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/middleware"
	"github.com/rosterhub/backend/internal/models"
	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/pkg/logger"
	"github.com/rosterhub/backend/pkg/utils"
)

type RelationshipsHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewRelationshipsHandler(db *gorm.DB, audit *services.AuditService) *RelationshipsHandler {
	return &RelationshipsHandler{DB: db, Audit: audit}
}

type inviteRequest struct {
	UserID uuid.UUID `json:"userID"`
}

// Invite creates a pending coach-player link. A coach invites a player or a
// player invites a coach; the invited side has to accept before the link
// counts for anything.
func (h *RelationshipsHandler) Invite(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req inviteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "userID is required")
	}
	if req.UserID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot invite yourself")
	}

	var other models.User
	if err := h.DB.First(&other, "id = ?", req.UserID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	var coachID, playerID uuid.UUID
	switch {
	case currentUser.Role == models.UserRoleCoach && other.Role == models.UserRolePlayer:
		coachID, playerID = currentUser.ID, other.ID
	case currentUser.Role == models.UserRolePlayer && other.Role == models.UserRoleCoach:
		coachID, playerID = other.ID, currentUser.ID
	default:
		return utils.Error(c, fiber.StatusBadRequest, "invitation must pair a coach with a player")
	}

	var existing models.CoachPlayerRelationship
	err := h.DB.Where("coach_id = ? AND player_id = ?", coachID, playerID).First(&existing).Error
	if err == nil {
		if existing.Status == models.RelationshipAccepted || existing.Status == models.RelationshipPending {
			return utils.Error(c, fiber.StatusConflict, "relationship already exists")
		}
		// A declined invitation may be retried.
		existing.Status = models.RelationshipPending
		existing.InvitedByID = currentUser.ID
		if err := h.DB.Save(&existing).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed creating invitation")
		}
		return utils.Success(c, fiber.StatusCreated, existing)
	}

	relationship := models.CoachPlayerRelationship{
		CoachID:     coachID,
		PlayerID:    playerID,
		InvitedByID: currentUser.ID,
		Status:      models.RelationshipPending,
	}
	if err := h.DB.Create(&relationship).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating invitation")
	}

	logger.InfoWithUser(currentUser.ID.String(), "relationship_invited", map[string]interface{}{
		"relationship_id": relationship.ID.String(),
		"coach_id":        coachID.String(),
		"player_id":       playerID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "relationship.invite",
		ResourceType: "relationship",
		ResourceID:   &relationship.ID,
		Details: map[string]interface{}{
			"coach_id":  coachID.String(),
			"player_id": playerID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, relationship)
}

// Accept transitions a pending invitation to accepted. Only the invited
// party may accept; the inviter cannot accept on their behalf.
func (h *RelationshipsHandler) Accept(c *fiber.Ctx) error {
	return h.respond(c, models.RelationshipAccepted, "relationship.accept")
}

// Decline marks a pending invitation declined. Only the invited party may
// decline.
func (h *RelationshipsHandler) Decline(c *fiber.Ctx) error {
	return h.respond(c, models.RelationshipDeclined, "relationship.decline")
}

func (h *RelationshipsHandler) respond(c *fiber.Ctx, status models.RelationshipStatus, action string) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	relationshipID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid relationship id")
	}

	var relationship models.CoachPlayerRelationship
	if err := h.DB.First(&relationship, "id = ?", relationshipID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "relationship not found")
	}

	if relationship.CoachID != currentUser.ID && relationship.PlayerID != currentUser.ID {
		return utils.Error(c, fiber.StatusNotFound, "relationship not found")
	}
	if relationship.InvitedByID == currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the invited party may respond")
	}
	if relationship.Status != models.RelationshipPending {
		return utils.Error(c, fiber.StatusConflict, "invitation already resolved")
	}

	relationship.Status = status
	if err := h.DB.Save(&relationship).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating relationship")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       action,
		ResourceType: "relationship",
		ResourceID:   &relationship.ID,
		Details: map[string]interface{}{
			"coach_id":  relationship.CoachID.String(),
			"player_id": relationship.PlayerID.String(),
			"status":    string(status),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, relationship)
}

// Revoke deletes a relationship. Either side may sever the link at any
// time, pending or accepted; the next profile read reflects it.
func (h *RelationshipsHandler) Revoke(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	relationshipID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid relationship id")
	}

	var relationship models.CoachPlayerRelationship
	if err := h.DB.First(&relationship, "id = ?", relationshipID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "relationship not found")
	}

	if relationship.CoachID != currentUser.ID && relationship.PlayerID != currentUser.ID {
		return utils.Error(c, fiber.StatusNotFound, "relationship not found")
	}

	if err := h.DB.Delete(&models.CoachPlayerRelationship{}, "id = ?", relationship.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting relationship")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "relationship.revoke",
		ResourceType: "relationship",
		ResourceID:   &relationship.ID,
		Details: map[string]interface{}{
			"coach_id":  relationship.CoachID.String(),
			"player_id": relationship.PlayerID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "relationship revoked"})
}

// List returns every relationship the caller participates in, both sides
// preloaded so the UI can render names without extra round trips.
func (h *RelationshipsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var relationships []models.CoachPlayerRelationship
	err := h.DB.
		Preload("Coach").
		Preload("Player").
		Where("coach_id = ? OR player_id = ?", currentUser.ID, currentUser.ID).
		Order("created_at DESC").
		Find(&relationships).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading relationships")
	}

	return utils.Success(c, fiber.StatusOK, relationships)
}
