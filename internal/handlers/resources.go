package handlers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/middleware"
	"github.com/rosterhub/backend/internal/models"
	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/internal/storage"
	"github.com/rosterhub/backend/pkg/logger"
	"github.com/rosterhub/backend/pkg/utils"
)

const presignedURLExpiry = 15 * time.Minute

type ResourcesHandler struct {
	DB      *gorm.DB
	Storage *storage.MinIOClient
	Access  *services.AccessService
	Audit   *services.AuditService
}

func NewResourcesHandler(db *gorm.DB, storageClient *storage.MinIOClient, access *services.AccessService, audit *services.AuditService) *ResourcesHandler {
	return &ResourcesHandler{DB: db, Storage: storageClient, Access: access, Audit: audit}
}

type createResourceRequest struct {
	Name     string                 `json:"name"`
	MimeType string                 `json:"mimeType"`
	Size     int64                  `json:"size"`
	IsPublic bool                   `json:"isPublic"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Create registers a resource record and hands back a presigned PUT URL for
// the attachment; the upload itself goes straight to object storage.
func (h *ResourcesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createResourceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := filepath.Base(strings.TrimSpace(req.Name))
	if name == "" || name == "." {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}
	if req.Size < 0 {
		return utils.Error(c, fiber.StatusBadRequest, "size must not be negative")
	}

	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	resource := models.Resource{
		Name:       name,
		MimeType:   mimeType,
		Size:       req.Size,
		OwnerID:    currentUser.ID,
		IsPublic:   req.IsPublic,
		StorageKey: fmt.Sprintf("%s/%s/%s", currentUser.ID.String(), uuid.New().String(), name),
		Metadata:   req.Metadata,
	}

	if err := h.DB.Create(&resource).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating resource")
	}

	var uploadURL string
	if h.Storage != nil {
		url, err := h.Storage.PresignedPutURL(c.Context(), resource.StorageKey, presignedURLExpiry)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed preparing upload")
		}
		uploadURL = url
	}

	logger.InfoWithUser(currentUser.ID.String(), "resource_created", map[string]interface{}{
		"resource_id":   resource.ID.String(),
		"resource_name": resource.Name,
		"is_public":     resource.IsPublic,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "resource.create",
		ResourceType: "resource",
		ResourceID:   &resource.ID,
		Details: map[string]interface{}{
			"resource_name": resource.Name,
			"is_public":     resource.IsPublic,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"resource":  resource,
		"uploadURL": uploadURL,
	})
}

// List returns every resource the viewer can see: their own, public ones,
// and ones with an explicit grant. Lack of visibility is never an error
// here — invisible resources are simply filtered out.
func (h *ResourcesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)

	grantedSubquery := h.DB.
		Table("share_grants").
		Select("resource_id").
		Where("grantee_id = ?", currentUser.ID)

	baseQuery := h.DB.Model(&models.Resource{}).
		Where("owner_id = ? OR is_public = ? OR id IN (?)", currentUser.ID, true, grantedSubquery)

	search := strings.TrimSpace(c.Query("search"))
	if search != "" {
		baseQuery = baseQuery.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := baseQuery.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting resources")
	}

	var resources []models.Resource
	if err := utils.ApplyPagination(baseQuery.Order("created_at DESC"), p).Find(&resources).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading resources")
	}

	return utils.Paginated(c, resources, p.Page, p.Limit, total)
}

// ListSharedWithMe returns resources granted to the viewer by others.
func (h *ResourcesHandler) ListSharedWithMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)

	grantedSubquery := h.DB.
		Table("share_grants").
		Select("resource_id").
		Where("grantee_id = ?", currentUser.ID)

	baseQuery := h.DB.Model(&models.Resource{}).
		Where("id IN (?) AND owner_id != ?", grantedSubquery, currentUser.ID)

	var total int64
	if err := baseQuery.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting shared resources")
	}

	var resources []models.Resource
	if err := utils.ApplyPagination(baseQuery.Preload("Owner").Order("created_at DESC"), p).Find(&resources).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading shared resources")
	}

	return utils.Paginated(c, resources, p.Page, p.Limit, total)
}

// Get returns a resource the viewer holds at least view capability on.
// A resource below view and a resource that does not exist are rendered
// identically, so an unauthorized caller learns nothing about existence.
func (h *ResourcesHandler) Get(c *fiber.Ctx) error {
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

	var resource models.Resource
	if err := h.DB.Preload("Owner").First(&resource, "id = ?", resourceID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "resource not found")
	}

	return utils.Success(c, fiber.StatusOK, resource)
}

type updateResourceRequest struct {
	Name     *string                `json:"name"`
	IsPublic *bool                  `json:"isPublic"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (h *ResourcesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	resourceID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid resource id")
	}

	capability := h.Access.Capability(c.Context(), currentUser.ID, resourceID)
	if !capability.Satisfies(services.CapabilityView) {
		return utils.Error(c, fiber.StatusNotFound, "resource not found")
	}
	if !capability.Satisfies(services.CapabilityEdit) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req updateResourceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := filepath.Base(strings.TrimSpace(*req.Name))
		if name == "" || name == "." {
			return utils.Error(c, fiber.StatusBadRequest, "name must not be empty")
		}
		updates["name"] = name
	}
	if req.IsPublic != nil {
		// Flipping the public flag changes who can see the resource;
		// that is share curation, owner territory.
		if !capability.Satisfies(services.CapabilityAdmin) {
			return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
		}
		updates["is_public"] = *req.IsPublic
	}
	if req.Metadata != nil {
		updates["metadata"] = req.Metadata
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "nothing to update")
	}

	if err := h.DB.Model(&models.Resource{}).Where("id = ?", resourceID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating resource")
	}

	var resource models.Resource
	if err := h.DB.First(&resource, "id = ?", resourceID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reloading resource")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "resource.update",
		ResourceType: "resource",
		ResourceID:   &resource.ID,
		Details: map[string]interface{}{
			"resource_name": resource.Name,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, resource)
}

func (h *ResourcesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	resourceID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid resource id")
	}

	capability := h.Access.Capability(c.Context(), currentUser.ID, resourceID)
	if !capability.Satisfies(services.CapabilityView) {
		return utils.Error(c, fiber.StatusNotFound, "resource not found")
	}
	if !capability.Satisfies(services.CapabilityAdmin) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var resource models.Resource
	if err := h.DB.First(&resource, "id = ?", resourceID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "resource not found")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ShareGrant{}, "resource_id = ?", resourceID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Comment{}, "resource_id = ?", resourceID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Resource{}, "id = ?", resourceID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting resource")
	}

	if h.Storage != nil && resource.StorageKey != "" {
		_ = h.Storage.Delete(c.Context(), resource.StorageKey)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "resource.delete",
		ResourceType: "resource",
		ResourceID:   &resource.ID,
		Details: map[string]interface{}{
			"resource_name": resource.Name,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "resource deleted"})
}

func (h *ResourcesHandler) DownloadURL(c *fiber.Ctx) error {
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

	var resource models.Resource
	if err := h.DB.First(&resource, "id = ?", resourceID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "resource not found")
	}

	if h.Storage == nil || resource.StorageKey == "" {
		return utils.Error(c, fiber.StatusNotFound, "resource has no attachment")
	}

	url, err := h.Storage.PresignedGetURL(
		c.Context(),
		resource.StorageKey,
		presignedURLExpiry,
		resource.MimeType,
		fmt.Sprintf("attachment; filename=%q", resource.Name),
	)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed preparing download")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url":       url,
		"expiresIn": int(presignedURLExpiry.Seconds()),
	})
}
