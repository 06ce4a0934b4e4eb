package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleCoach  UserRole = "coach"
	UserRolePlayer UserRole = "player"
)

// PrivacyPolicy maps each optional profile field group to a hidden flag.
// The zero value (and a missing column) leaves every group visible.
type PrivacyPolicy struct {
	HidePhone   bool `json:"hidePhone"`
	HideEmail   bool `json:"hideEmail"`
	HideAddress bool `json:"hideAddress"`
	HideSocial  bool `json:"hideSocial"`
	HideAge     bool `json:"hideAge"`
	HideStats   bool `json:"hideStats"`
}

type PlayerStats struct {
	GamesPlayed   int `json:"gamesPlayed"`
	Goals         int `json:"goals"`
	Assists       int `json:"assists"`
	MinutesPlayed int `json:"minutesPlayed"`
}

type User struct {
	BaseModel
	Email        string   `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"type:text;not null"`
	FirstName    string   `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName     string   `json:"lastName" gorm:"type:varchar(100);not null"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;default:'player';index"`
	AvatarURL    *string  `json:"avatarURL,omitempty" gorm:"type:text"`

	Position     string     `json:"position" gorm:"type:varchar(50)"`
	JerseyNumber *int       `json:"jerseyNumber,omitempty"`
	Phone        *string    `json:"phone,omitempty" gorm:"type:varchar(30)"`
	Street       *string    `json:"street,omitempty" gorm:"type:varchar(255)"`
	City         *string    `json:"city,omitempty" gorm:"type:varchar(100)"`
	State        *string    `json:"state,omitempty" gorm:"type:varchar(100)"`
	ZipCode      *string    `json:"zipCode,omitempty" gorm:"type:varchar(20)"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`

	SocialHandles map[string]string `json:"socialHandles,omitempty" gorm:"type:jsonb;serializer:json"`
	Stats         *PlayerStats      `json:"stats,omitempty" gorm:"type:jsonb;serializer:json"`
	Privacy       *PrivacyPolicy    `json:"privacy,omitempty" gorm:"type:jsonb;serializer:json"`

	TOTPSecret  string `json:"-" gorm:"type:text"`
	TOTPEnabled bool   `json:"totpEnabled" gorm:"not null;default:false"`

	Resources []Resource   `json:"-" gorm:"foreignKey:OwnerID"`
	Grants    []ShareGrant `json:"-" gorm:"foreignKey:GrantorID"`
}

func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
