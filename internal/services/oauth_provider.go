package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/rosterhub/backend/internal/config"
	"github.com/rosterhub/backend/pkg/logger"
)

// SSOProfile is the normalized identity returned by every external login
// path (OAuth providers and LDAP alike).
type SSOProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
}

type OAuthProviderService struct {
	Cfg *config.Config
}

func NewOAuthProviderService(cfg *config.Config) *OAuthProviderService {
	return &OAuthProviderService{Cfg: cfg}
}

type OAuthState struct {
	Provider  string
	Nonce     string
	ExpiresAt time.Time
}

func (s *OAuthProviderService) GetOAuthConfig(provider string) (*oauth2.Config, error) {
	switch strings.ToLower(provider) {
	case "google":
		if !s.Cfg.SSO.Google.Enabled {
			return nil, errors.New("google oauth is not enabled")
		}
		return &oauth2.Config{
			ClientID:     s.Cfg.SSO.Google.ClientID,
			ClientSecret: s.Cfg.SSO.Google.ClientSecret,
			RedirectURL:  s.Cfg.SSO.Google.RedirectURL,
			Scopes:       strings.Split(s.Cfg.SSO.Google.Scopes, ","),
			Endpoint:     google.Endpoint,
		}, nil

	case "github":
		if !s.Cfg.SSO.GitHub.Enabled {
			return nil, errors.New("github oauth is not enabled")
		}
		return &oauth2.Config{
			ClientID:     s.Cfg.SSO.GitHub.ClientID,
			ClientSecret: s.Cfg.SSO.GitHub.ClientSecret,
			RedirectURL:  s.Cfg.SSO.GitHub.RedirectURL,
			Scopes:       strings.Split(s.Cfg.SSO.GitHub.Scopes, ","),
			Endpoint:     oauthgithub.Endpoint,
		}, nil

	default:
		return nil, errors.New("unknown oauth provider: " + provider)
	}
}

func (s *OAuthProviderService) GenerateState(provider string) (*OAuthState, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, err
	}

	return &OAuthState{
		Provider:  provider,
		Nonce:     base64.URLEncoding.EncodeToString(nonceBytes),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil
}

func (s *OAuthProviderService) ExchangeCode(ctx context.Context, provider string, code string) (*oauth2.Token, error) {
	oauthCfg, err := s.GetOAuthConfig(provider)
	if err != nil {
		return nil, err
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Warn("oauth_exchange_failed", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		return nil, errors.New("failed to exchange code for token")
	}

	return token, nil
}

func (s *OAuthProviderService) GetUserInfo(ctx context.Context, provider string, token *oauth2.Token) (*SSOProfile, error) {
	switch strings.ToLower(provider) {
	case "google":
		return s.getGoogleUserInfo(ctx, token)
	case "github":
		return s.getGitHubUserInfo(ctx, token)
	default:
		return nil, errors.New("unknown provider: " + provider)
	}
}

func (s *OAuthProviderService) getGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*SSOProfile, error) {
	oauthCfg, err := s.GetOAuthConfig("google")
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := fetchJSON(ctx, oauthCfg.Client(ctx, token), "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}

	if payload.Email == "" {
		return nil, errors.New("google profile has no email")
	}

	return &SSOProfile{
		Provider:       "google",
		ProviderUserID: payload.ID,
		Email:          payload.Email,
		FirstName:      payload.GivenName,
		LastName:       payload.FamilyName,
	}, nil
}

func (s *OAuthProviderService) getGitHubUserInfo(ctx context.Context, token *oauth2.Token) (*SSOProfile, error) {
	oauthCfg, err := s.GetOAuthConfig("github")
	if err != nil {
		return nil, err
	}
	client := oauthCfg.Client(ctx, token)

	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := fetchJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}

	email := payload.Email
	if email == "" {
		// The profile email is often unset; the emails endpoint has the
		// primary address.
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := fetchJSON(ctx, client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary {
					email = e.Email
					break
				}
			}
		}
	}
	if email == "" {
		return nil, errors.New("github profile has no email")
	}

	firstName := payload.Name
	lastName := ""
	if parts := strings.SplitN(strings.TrimSpace(payload.Name), " ", 2); len(parts) == 2 {
		firstName, lastName = parts[0], parts[1]
	}
	if firstName == "" {
		firstName = payload.Login
	}

	return &SSOProfile{
		Provider:       "github",
		ProviderUserID: fmt.Sprintf("%d", payload.ID),
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
	}, nil
}

func fetchJSON(ctx context.Context, client *http.Client, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("userinfo request failed: %s: %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
