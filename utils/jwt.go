package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "ordengo-kiosk"

// Maintenance roles carried in tokens. Admin satisfies every role check.
const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
)

var (
	jwtSecret   []byte
	jwtSecretMu sync.RWMutex

	blacklistedTokens = make(map[string]time.Time)
	blacklistMutex    sync.RWMutex
)

// SetJWTSecret installs the signing secret for maintenance tokens.
func SetJWTSecret(secret string) {
	jwtSecretMu.Lock()
	defer jwtSecretMu.Unlock()
	jwtSecret = []byte(secret)
}

func secretKey() []byte {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	return jwtSecret
}

type CustomClaims struct {
	DeviceID string `json:"device_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a short-lived maintenance token for this device.
func GenerateToken(deviceID, role string, ttl time.Duration) (string, error) {
	if len(secretKey()) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := &CustomClaims{
		DeviceID: deviceID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

func ParseToken(tokenString string) (*CustomClaims, error) {
	if IsTokenBlacklisted(tokenString) {
		return nil, errors.New("token has been revoked")
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// BlacklistToken revokes a token until expiry.
func BlacklistToken(token string, until time.Time) {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()
	blacklistedTokens[token] = until
	now := time.Now()
	for t, expiry := range blacklistedTokens {
		if now.After(expiry) {
			delete(blacklistedTokens, t)
		}
	}
}

func IsTokenBlacklisted(token string) bool {
	blacklistMutex.RLock()
	defer blacklistMutex.RUnlock()

	expiry, exists := blacklistedTokens[token]
	return exists && time.Now().Before(expiry)
}
