package utils

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateRandomPassword produces an unguessable placeholder for accounts
// provisioned through SSO, which never log in with a local password.
func GenerateRandomPassword() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return base64.URLEncoding.EncodeToString(buf)
}
