package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/middleware"
	"github.com/rosterhub/backend/internal/models"
	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/pkg/utils"
)

const totpIssuer = "RosterHub"

type MFAHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewMFAHandler(db *gorm.DB, audit *services.AuditService) *MFAHandler {
	return &MFAHandler{DB: db, Audit: audit}
}

// verifyTOTPCode decrypts the stored secret and checks the code against the
// current time window.
func verifyTOTPCode(encryptedSecret, code string) (bool, error) {
	secret, err := utils.DecryptAESGCM(encryptedSecret)
	if err != nil {
		return false, err
	}
	return totp.Validate(code, secret), nil
}

// Setup generates a fresh TOTP secret and returns the provisioning URL. The
// secret is stored encrypted but MFA stays off until Activate confirms the
// user scanned it.
func (h *MFAHandler) Setup(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if currentUser.TOTPEnabled {
		return utils.Error(c, fiber.StatusConflict, "mfa already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: currentUser.Email,
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating secret")
	}

	encrypted, err := utils.EncryptAESGCM(key.Secret())
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing secret")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("totp_secret", encrypted).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing secret")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"secret": key.Secret(),
		"url":    key.URL(),
	})
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

// Activate turns MFA on after the user proves possession of the secret.
func (h *MFAHandler) Activate(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if currentUser.TOTPEnabled {
		return utils.Error(c, fiber.StatusConflict, "mfa already enabled")
	}
	if currentUser.TOTPSecret == "" {
		return utils.Error(c, fiber.StatusBadRequest, "mfa setup not started")
	}

	var req mfaCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	valid, err := verifyTOTPCode(currentUser.TOTPSecret, req.Code)
	if err != nil || !valid {
		return utils.Error(c, fiber.StatusBadRequest, "invalid verification code")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("totp_enabled", true).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed enabling mfa")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "mfa.enable",
		ResourceType: "user",
		ResourceID:   &currentUser.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "mfa enabled"})
}

// Disable requires a valid current code so a hijacked session cannot
// silently strip the second factor.
func (h *MFAHandler) Disable(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if !currentUser.TOTPEnabled {
		return utils.Error(c, fiber.StatusBadRequest, "mfa not enabled")
	}

	var req mfaCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	valid, err := verifyTOTPCode(currentUser.TOTPSecret, req.Code)
	if err != nil || !valid {
		return utils.Error(c, fiber.StatusBadRequest, "invalid verification code")
	}

	updates := map[string]interface{}{
		"totp_enabled": false,
		"totp_secret":  "",
	}
	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed disabling mfa")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "mfa.disable",
		ResourceType: "user",
		ResourceID:   &currentUser.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "mfa disabled"})
}
