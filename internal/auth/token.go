package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/BradenHooton/haulgate/internal/models"
)

// ErrTokenMismatch means a device-trust token was presented for another user or device.
var ErrTokenMismatch = errors.New("token does not match user or device")

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	deviceTrustExpiry  time.Duration
	now                func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry, deviceTrustExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		deviceTrustExpiry:  deviceTrustExpiry,
		now:                time.Now,
	}
}

// GenerateAccessToken creates a short-lived access token
func (tm *TokenManager) GenerateAccessToken(user *models.User) (string, error) {
	token, _, err := tm.sign(models.TokenTypeAccess, user.ID, user.UserType, "", tm.accessTokenExpiry)
	return token, err
}

// GenerateRefreshToken creates a long-lived refresh token
func (tm *TokenManager) GenerateRefreshToken(user *models.User) (string, error) {
	token, _, err := tm.sign(models.TokenTypeRefresh, user.ID, user.UserType, "", tm.refreshTokenExpiry)
	return token, err
}

// GenerateDeviceTrustToken binds a trust window to one user and device.
func (tm *TokenManager) GenerateDeviceTrustToken(userID, deviceID string) (string, time.Time, error) {
	return tm.sign(models.TokenTypeDeviceTrust, userID, "", deviceID, tm.deviceTrustExpiry)
}

func (tm *TokenManager) sign(tokenType, userID, userType, deviceID string, ttl time.Duration) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(ttl)

	claims := &models.TokenClaims{
		Type:     tokenType,
		UserID:   userID,
		UserType: userType,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}
	if claims.Type == "" {
		return nil, fmt.Errorf("invalid token: missing type")
	}

	return claims, nil
}

// ValidateDeviceTrustToken checks that tokenString is an unexpired trust token for userID and deviceID.
func (tm *TokenManager) ValidateDeviceTrustToken(tokenString, userID, deviceID string) error {
	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	if claims.Type != models.TokenTypeDeviceTrust || claims.UserID != userID || claims.DeviceID != deviceID {
		return ErrTokenMismatch
	}
	return nil
}
