package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/middleware"
	"github.com/rosterhub/backend/internal/models"
	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/pkg/utils"
)

type CommentsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Audit  *services.AuditService
}

func NewCommentsHandler(db *gorm.DB, access *services.AccessService, audit *services.AuditService) *CommentsHandler {
	return &CommentsHandler{DB: db, Access: access, Audit: audit}
}

type createCommentRequest struct {
	Body string `json:"body"`
}

func (h *CommentsHandler) Create(c *fiber.Ctx) error {
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
	if !capability.Satisfies(services.CapabilityComment) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return utils.Error(c, fiber.StatusBadRequest, "comment body is required")
	}

	comment := models.Comment{
		ResourceID: resourceID,
		AuthorID:   currentUser.ID,
		Body:       body,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating comment")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "comment.create",
		ResourceType: "comment",
		ResourceID:   &resourceID,
		Details: map[string]interface{}{
			"comment_id": comment.ID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, comment)
}

func (h *CommentsHandler) List(c *fiber.Ctx) error {
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

	p := utils.ParsePagination(c)

	baseQuery := h.DB.Model(&models.Comment{}).Where("resource_id = ?", resourceID)

	var total int64
	if err := baseQuery.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting comments")
	}

	var comments []models.Comment
	if err := utils.ApplyPagination(baseQuery.Preload("Author").Order("created_at ASC"), p).Find(&comments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comments")
	}

	return utils.Paginated(c, comments, p.Page, p.Limit, total)
}

// Delete removes a comment. Allowed for the comment's author and for the
// resource owner; anyone without view on the resource gets the same
// not-found as for an absent comment.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	commentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "comment not found")
	}

	capability := h.Access.Capability(c.Context(), currentUser.ID, comment.ResourceID)
	if !capability.Satisfies(services.CapabilityView) {
		return utils.Error(c, fiber.StatusNotFound, "comment not found")
	}

	isAuthor := comment.AuthorID == currentUser.ID
	if !isAuthor && !capability.Satisfies(services.CapabilityAdmin) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Delete(&models.Comment{}, "id = ?", comment.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting comment")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "comment.delete",
		ResourceType: "comment",
		ResourceID:   &comment.ResourceID,
		Details: map[string]interface{}{
			"comment_id": comment.ID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "comment deleted"})
}
