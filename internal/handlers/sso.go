package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/config"
	"github.com/rosterhub/backend/internal/models"
	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/pkg/logger"
	"github.com/rosterhub/backend/pkg/utils"
)

type SSOHandler struct {
	DB    *gorm.DB
	Cfg   *config.Config
	OAuth *services.OAuthProviderService
	LDAP  *services.LDAPService
	Audit *services.AuditService
}

func NewSSOHandler(db *gorm.DB, cfg *config.Config, oauth *services.OAuthProviderService, ldapSvc *services.LDAPService, audit *services.AuditService) *SSOHandler {
	return &SSOHandler{DB: db, Cfg: cfg, OAuth: oauth, LDAP: ldapSvc, Audit: audit}
}

type ssoProvider struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ListProviders tells the login page which external identity paths exist.
func (h *SSOHandler) ListProviders(c *fiber.Ctx) error {
	providers := []ssoProvider{
		{Name: "google", Enabled: h.Cfg.SSO.Google.Enabled},
		{Name: "github", Enabled: h.Cfg.SSO.GitHub.Enabled},
		{Name: "ldap", Enabled: h.Cfg.LDAP.Enabled},
	}
	return utils.Success(c, fiber.StatusOK, providers)
}

// GetLoginRedirect builds the provider authorize URL with a signed-enough
// state blob the callback can verify round-tripped intact.
func (h *SSOHandler) GetLoginRedirect(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))

	oauthCfg, err := h.OAuth.GetOAuthConfig(provider)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.OAuth.GenerateState(provider)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating state")
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed encoding state")
	}
	encodedState := base64.URLEncoding.EncodeToString(stateJSON)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url": oauthCfg.AuthCodeURL(encodedState),
	})
}

type oauthCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// HandleOAuthCallback finishes the code exchange and logs the user in,
// creating the account first when auto-registration allows it.
func (h *SSOHandler) HandleOAuthCallback(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))

	var req oauthCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" || req.State == "" {
		return utils.Error(c, fiber.StatusBadRequest, "code and state are required")
	}

	stateJSON, err := base64.URLEncoding.DecodeString(req.State)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid state")
	}
	var state services.OAuthState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid state")
	}
	if state.Provider != provider || time.Now().After(state.ExpiresAt) {
		return utils.Error(c, fiber.StatusBadRequest, "state expired or mismatched")
	}

	token, err := h.OAuth.ExchangeCode(c.Context(), provider, req.Code)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication failed")
	}

	profile, err := h.OAuth.GetUserInfo(c.Context(), provider, token)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "failed loading profile")
	}

	return h.loginSSOProfile(c, profile)
}

type ldapLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *SSOHandler) HandleLDAPLogin(c *fiber.Ctx) error {
	if !h.LDAP.IsEnabled() {
		return utils.Error(c, fiber.StatusBadRequest, "ldap is not enabled")
	}

	var req ldapLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := h.LDAP.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	return h.loginSSOProfile(c, profile)
}

func (h *SSOHandler) loginSSOProfile(c *fiber.Ctx, profile *services.SSOProfile) error {
	user, err := h.findOrCreateSSOUser(profile)
	if err != nil {
		return utils.Error(c, fiber.StatusForbidden, err.Error())
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.InfoWithUser(user.ID.String(), "sso_login", map[string]interface{}{
		"provider": profile.Provider,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "auth.sso_login",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details:      map[string]interface{}{"provider": profile.Provider},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, authResponse{Token: token, User: user})
}

// findOrCreateSSOUser matches on email. Accounts are auto-provisioned with
// the configured default role when SSO_AUTO_REGISTER is on; otherwise a
// missing account is a hard failure.
func (h *SSOHandler) findOrCreateSSOUser(profile *services.SSOProfile) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))

	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err == nil {
		return &user, nil
	}

	if !h.Cfg.SSO.AutoRegister {
		return nil, errors.New("no account for this identity; auto-registration is disabled")
	}

	role := models.UserRole(h.Cfg.SSO.DefaultRole)
	if role != models.UserRoleCoach && role != models.UserRolePlayer {
		role = models.UserRolePlayer
	}

	// SSO accounts never carry a usable local password.
	placeholder, err := utils.HashPassword(utils.GenerateRandomPassword())
	if err != nil {
		return nil, err
	}

	user = models.User{
		Email:        email,
		PasswordHash: placeholder,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Role:         role,
	}
	if user.FirstName == "" {
		user.FirstName = email
	}

	if err := h.DB.Create(&user).Error; err != nil {
		return nil, err
	}

	logger.InfoWithUser(user.ID.String(), "sso_user_registered", map[string]interface{}{
		"provider": profile.Provider,
		"role":     string(user.Role),
	})

	return &user, nil
}
