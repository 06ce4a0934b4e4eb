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

type GrantsHandler struct {
	DB     *gorm.DB
	Grants *services.GrantService
	Access *services.AccessService
	Audit  *services.AuditService
}

func NewGrantsHandler(db *gorm.DB, grants *services.GrantService, access *services.AccessService, audit *services.AuditService) *GrantsHandler {
	return &GrantsHandler{DB: db, Grants: grants, Access: access, Audit: audit}
}

type createGrantRequest struct {
	GranteeID uuid.UUID              `json:"granteeID"`
	Level     models.PermissionLevel `json:"level"`
}

func (h *GrantsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	resourceID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid resource id")
	}

	if !h.Access.Capability(c.Context(), currentUser.ID, resourceID).Satisfies(services.CapabilityView) {
		return utils.Error(c, fiber.StatusNotFound, "resource not found")
	}

	var req createGrantRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.GranteeID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "granteeID is required")
	}

	grant, err := h.Grants.Grant(c.Context(), resourceID, currentUser.ID, req.GranteeID, req.Level)
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "grant_created", map[string]interface{}{
		"resource_id": resourceID.String(),
		"grantee_id":  req.GranteeID.String(),
		"level":       string(grant.Level),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "grant.create",
		ResourceType: "grant",
		ResourceID:   &resourceID,
		Details: map[string]interface{}{
			"grant_id":   grant.ID.String(),
			"grantee_id": req.GranteeID.String(),
			"level":      string(grant.Level),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, grant)
}

func (h *GrantsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	resourceID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid resource id")
	}

	if !h.Access.Capability(c.Context(), currentUser.ID, resourceID).Satisfies(services.CapabilityView) {
		return utils.Error(c, fiber.StatusNotFound, "resource not found")
	}

	grants, err := h.Grants.ListFor(c.Context(), resourceID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading grants")
	}

	return utils.Success(c, fiber.StatusOK, grants)
}

func (h *GrantsHandler) Revoke(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	grantID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid grant id")
	}

	var grant models.ShareGrant
	if err := h.DB.First(&grant, "id = ?", grantID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "grant not found")
	}

	if err := h.Grants.Revoke(c.Context(), grantID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "grant.revoke",
		ResourceType: "grant",
		ResourceID:   &grant.ResourceID,
		Details: map[string]interface{}{
			"grant_id":   grant.ID.String(),
			"grantee_id": grant.GranteeID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "grant revoked"})
}
