package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/rosterhub/backend/internal/config"
	"github.com/rosterhub/backend/pkg/logger"
)

// LDAPService authenticates club-directory accounts: a service bind, a
// search for the user entry, then a bind as that entry with the supplied
// password.
type LDAPService struct {
	Cfg *config.Config
}

func NewLDAPService(cfg *config.Config) *LDAPService {
	return &LDAPService{Cfg: cfg}
}

func (s *LDAPService) IsEnabled() bool {
	return s.Cfg != nil && s.Cfg.LDAP.Enabled
}

func (s *LDAPService) Authenticate(ctx context.Context, username, password string) (*SSOProfile, error) {
	if !s.IsEnabled() {
		return nil, errors.New("LDAP is not enabled")
	}
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	cfg := s.Cfg.LDAP

	conn, err := ldap.DialURL(cfg.URL)
	if err != nil {
		logger.Error("ldap_dial_failed", err, map[string]interface{}{"url": cfg.URL})
		return nil, errors.New("directory unavailable")
	}
	defer conn.Close()

	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			logger.Error("ldap_service_bind_failed", err, map[string]interface{}{"bind_dn": cfg.BindDN})
			return nil, errors.New("directory unavailable")
		}
	}

	filter := strings.Replace(cfg.UserFilter, "%s", ldap.EscapeFilter(username), 1)
	searchRequest := ldap.NewSearchRequest(
		cfg.SearchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 10, false,
		filter,
		[]string{"dn", cfg.EmailAttr, cfg.NameAttr, "givenName", "sn"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil || len(result.Entries) != 1 {
		logger.Warn("ldap_user_not_found", map[string]interface{}{"username": username})
		return nil, errors.New("invalid credentials")
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		logger.Warn("ldap_auth_failed", map[string]interface{}{"username": username})
		return nil, errors.New("invalid credentials")
	}

	email := entry.GetAttributeValue(cfg.EmailAttr)
	if email == "" {
		return nil, errors.New("directory entry has no email")
	}

	firstName := entry.GetAttributeValue("givenName")
	lastName := entry.GetAttributeValue("sn")
	if firstName == "" {
		firstName = entry.GetAttributeValue(cfg.NameAttr)
	}
	if firstName == "" {
		firstName = username
	}

	logger.Info("ldap_auth_success", map[string]interface{}{
		"username": username,
		"email":    email,
	})

	return &SSOProfile{
		Provider:       "ldap",
		ProviderUserID: entry.DN,
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
	}, nil
}
