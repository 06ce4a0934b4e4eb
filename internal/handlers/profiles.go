package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/middleware"
	"github.com/rosterhub/backend/internal/models"
	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/pkg/utils"
)

type ProfilesHandler struct {
	DB            *gorm.DB
	Relationships *services.RelationshipService
	Audit         *services.AuditService
}

func NewProfilesHandler(db *gorm.DB, relationships *services.RelationshipService, audit *services.AuditService) *ProfilesHandler {
	return &ProfilesHandler{DB: db, Relationships: relationships, Audit: audit}
}

// Get returns the subject's profile projected for the viewer. Redaction is
// never an error: the response is always 200 with whatever the viewer may
// see. The relationship is resolved fresh on every request.
func (h *ProfilesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	subjectID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid profile id")
	}

	var subject models.User
	if err := h.DB.First(&subject, "id = ?", subjectID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "profile not found")
	}

	relationship := h.Relationships.Resolve(c.Context(), currentUser.ID, subject.ID)
	view := services.Project(&subject, relationship, time.Now().UTC())

	return utils.Success(c, fiber.StatusOK, view)
}

type updateProfileRequest struct {
	FirstName     *string             `json:"firstName"`
	LastName      *string             `json:"lastName"`
	AvatarURL     *string             `json:"avatarURL"`
	Position      *string             `json:"position"`
	JerseyNumber  *int                `json:"jerseyNumber"`
	Phone         *string             `json:"phone"`
	Street        *string             `json:"street"`
	City          *string             `json:"city"`
	State         *string             `json:"state"`
	ZipCode       *string             `json:"zipCode"`
	DateOfBirth   *time.Time          `json:"dateOfBirth"`
	SocialHandles map[string]string   `json:"socialHandles"`
	Stats         *models.PlayerStats `json:"stats"`
}

// Update mutates the caller's own profile only.
func (h *ProfilesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return utils.Error(c, fiber.StatusBadRequest, "firstName must not be empty")
		}
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.Position != nil {
		updates["position"] = strings.TrimSpace(*req.Position)
	}
	if req.JerseyNumber != nil {
		updates["jersey_number"] = *req.JerseyNumber
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Street != nil {
		updates["street"] = *req.Street
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.State != nil {
		updates["state"] = *req.State
	}
	if req.ZipCode != nil {
		updates["zip_code"] = *req.ZipCode
	}
	if req.DateOfBirth != nil {
		updates["date_of_birth"] = *req.DateOfBirth
	}
	if req.SocialHandles != nil {
		updates["social_handles"] = req.SocialHandles
	}
	if req.Stats != nil {
		updates["stats"] = req.Stats
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "nothing to update")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", currentUser.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reloading profile")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

// UpdatePrivacy replaces the caller's privacy policy wholesale. Only the
// subject curates their own policy.
func (h *ProfilesHandler) UpdatePrivacy(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var policy models.PrivacyPolicy
	if err := c.BodyParser(&policy); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("privacy", &policy).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating privacy policy")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "profile.privacy_update",
		ResourceType: "profile",
		ResourceID:   &currentUser.ID,
		Details: map[string]interface{}{
			"hide_phone":   policy.HidePhone,
			"hide_email":   policy.HideEmail,
			"hide_address": policy.HideAddress,
			"hide_social":  policy.HideSocial,
			"hide_age":     policy.HideAge,
			"hide_stats":   policy.HideStats,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, policy)
}
