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

type UsersHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewUsersHandler(db *gorm.DB, audit *services.AuditService) *UsersHandler {
	return &UsersHandler{DB: db, Audit: audit}
}

// userSummary is the trimmed shape returned by search. Directory lookups
// never expose contact details; those go through the profile projection.
type userSummary struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatarURL,omitempty"`
}

func summarize(u *models.User) userSummary {
	return userSummary{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		AvatarURL: u.AvatarURL,
	}
}

// Search finds users by name or email so coaches and players can address
// invitations and share grants. Any authenticated user may search.
func (h *UsersHandler) Search(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		return utils.Error(c, fiber.StatusBadRequest, "query must be at least 2 characters")
	}

	pattern := "%" + strings.ToLower(query) + "%"

	var users []models.User
	err := h.DB.
		Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", pattern, pattern, pattern).
		Order("first_name ASC").
		Limit(20).
		Find(&users).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching users")
	}

	summaries := make([]userSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, summarize(&users[i]))
	}

	return utils.Success(c, fiber.StatusOK, summaries)
}

// List is admin-only and paginated.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	baseQuery := h.DB.Model(&models.User{})
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		baseQuery = baseQuery.Where("role = ?", role)
	}

	var total int64
	if err := baseQuery.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(baseQuery.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading users")
	}

	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

type adminUpdateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Role      *string `json:"role"`
}

func (h *UsersHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	var req adminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		if role != models.UserRoleAdmin && role != models.UserRoleCoach && role != models.UserRolePlayer {
			return utils.Error(c, fiber.StatusBadRequest, "invalid role")
		}
		if user.ID == currentUser.ID && role != models.UserRoleAdmin {
			return utils.Error(c, fiber.StatusBadRequest, "cannot demote yourself")
		}
		updates["role"] = role
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "nothing to update")
	}

	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating user")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.admin_update",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details:      map[string]interface{}{"fields": len(updates)},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, user)
}

// Delete removes a user and everything hanging off them in one
// transaction. Grants in either direction and relationships on either side
// go with the account.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}
	if userID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot delete yourself")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ShareGrant{}, "grantee_id = ? OR grantor_id = ?", userID, userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.CoachPlayerRelationship{}, "coach_id = ? OR player_id = ?", userID, userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Comment{}, "author_id = ?", userID).Error; err != nil {
			return err
		}
		var resourceIDs []string
		if err := tx.Model(&models.Resource{}).Where("owner_id = ?", userID).Pluck("id", &resourceIDs).Error; err != nil {
			return err
		}
		if len(resourceIDs) > 0 {
			if err := tx.Delete(&models.ShareGrant{}, "resource_id IN ?", resourceIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Comment{}, "resource_id IN ?", resourceIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Resource{}, "id IN ?", resourceIDs).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.admin_delete",
		ResourceType: "user",
		ResourceID:   &userID,
		Details:      map[string]interface{}{"email": user.Email},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user deleted"})
}
