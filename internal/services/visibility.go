package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/rosterhub/backend/internal/models"
)

// ProfileView is the redacted projection of a player profile. The first
// block of fields is always present; every other field belongs to exactly
// one privacy group and is omitted when that group is hidden from the viewer.
type ProfileView struct {
	ID           uuid.UUID       `json:"id"`
	DisplayName  string          `json:"displayName"`
	Role         models.UserRole `json:"role"`
	AvatarURL    *string         `json:"avatarURL,omitempty"`
	Position     string          `json:"position,omitempty"`
	JerseyNumber *int            `json:"jerseyNumber,omitempty"`

	Phone *string `json:"phone,omitempty"`
	Email string  `json:"email,omitempty"`

	Street  *string `json:"street,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	ZipCode *string `json:"zipCode,omitempty"`

	SocialHandles map[string]string `json:"socialHandles,omitempty"`

	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Age         *int       `json:"age,omitempty"`

	Stats *models.PlayerStats `json:"stats,omitempty"`
}

// Project builds the view of profile a viewer with the given relationship is
// allowed to see. Self and an accepted coach get the full profile; everyone
// else starts from the minimal set and gains each group whose hidden flag is
// false. A missing policy leaves every group visible. Pure function: the
// derived age depends only on the now argument, so identical inputs always
// produce identical output, and flipping one flag hidden->visible can only
// add fields.
func Project(profile *models.User, relationship Relationship, now time.Time) ProfileView {
	if profile == nil {
		return ProfileView{}
	}

	view := ProfileView{
		ID:           profile.ID,
		DisplayName:  profile.DisplayName(),
		Role:         profile.Role,
		AvatarURL:    profile.AvatarURL,
		Position:     profile.Position,
		JerseyNumber: profile.JerseyNumber,
	}

	var policy models.PrivacyPolicy
	if profile.Privacy != nil {
		policy = *profile.Privacy
	}

	trusted := relationship == RelationshipSelf || relationship == RelationshipCoachOf

	if trusted || !policy.HidePhone {
		view.Phone = profile.Phone
	}
	if trusted || !policy.HideEmail {
		view.Email = profile.Email
	}
	if trusted || !policy.HideAddress {
		view.Street = profile.Street
		view.City = profile.City
		view.State = profile.State
		view.ZipCode = profile.ZipCode
	}
	if trusted || !policy.HideSocial {
		if len(profile.SocialHandles) > 0 {
			handles := make(map[string]string, len(profile.SocialHandles))
			for platform, handle := range profile.SocialHandles {
				handles[platform] = handle
			}
			view.SocialHandles = handles
		}
	}
	if trusted || !policy.HideAge {
		view.DateOfBirth = profile.DateOfBirth
		view.Age = ageAt(profile.DateOfBirth, now)
	}
	if trusted || !policy.HideStats {
		view.Stats = profile.Stats
	}

	return view
}

func ageAt(dateOfBirth *time.Time, now time.Time) *int {
	if dateOfBirth == nil {
		return nil
	}

	age := now.Year() - dateOfBirth.Year()
	anniversary := dateOfBirth.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}
