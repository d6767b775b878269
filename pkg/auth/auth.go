package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-api-go/pkg/database"
)

// Secrets carries the signing material. Loading it explicitly keeps the
// package free of init-time environment reads, so tests can supply their
// own values.
type Secrets struct {
	JWTKey    []byte
	MasterKey []byte
}

// SecretsFromEnv reads JWT_SECRET and API_MASTER_SECRET.
func SecretsFromEnv() Secrets {
	return Secrets{
		JWTKey:    []byte(os.Getenv("JWT_SECRET")),
		MasterKey: []byte(os.Getenv("API_MASTER_SECRET")),
	}
}

// Claims represents the JWT claims for an admin session.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateToken issues a 24h admin session token.
func (s Secrets) CreateToken(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.JWTKey)
}

// VerifyToken parses and validates an admin session token.
func (s Secrets) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.JWTKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GenerateAPIKey creates a signed API key using HMAC-SHA256. The key is
// self-verifying, so the server never stores a secret per key.
func (s Secrets) GenerateAPIKey(userID string) string {
	h := hmac.New(sha256.New, s.MasterKey)
	h.Write([]byte(userID))
	return userID + "." + hex.EncodeToString(h.Sum(nil))
}

// VerifyAPIKey validates an HMAC-signed API key and returns its user ID.
func (s Secrets) VerifyAPIKey(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("invalid key format")
	}

	h := hmac.New(sha256.New, s.MasterKey)
	h.Write([]byte(parts[0]))
	expected := hex.EncodeToString(h.Sum(nil))

	// Constant-time comparison to prevent timing attacks.
	if !hmac.Equal([]byte(parts[1]), []byte(expected)) {
		return "", errors.New("invalid signature")
	}
	return parts[0], nil
}

// EnsureAdminExists creates the bootstrap admin from ADMIN_USERNAME and
// ADMIN_PASSWORD when no master user exists yet.
func EnsureAdminExists(db *gorm.DB) error {
	var count int64
	db.Model(&database.MasterUser{}).Count(&count)
	if count > 0 {
		return nil
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := database.MasterUser{Username: username, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	log.Printf("default admin user created: %s", username)
	return nil
}
