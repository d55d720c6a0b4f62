package utils

import (
	"fmt"
	"time"

	"thittam1hub-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService signs and verifies access and refresh tokens.
type JWTService struct {
	secretKey []byte
}

// NewJWTService creates a JWT service around the shared secret.
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
	}
}

// GenerateTokenPair issues a 15 minute access token and a 7 day refresh token.
func (j *JWTService) GenerateTokenPair(userID, email string) (accessToken, refreshToken string, expiresIn int64, err error) {
	now := time.Now()

	accessExpiry := now.Add(15 * time.Minute)
	accessClaims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "access",
		Exp:    accessExpiry.Unix(),
		Iat:    now.Unix(),
	}

	accessTokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessToken, err = accessTokenObj.SignedString(j.secretKey)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshExpiry := now.Add(7 * 24 * time.Hour)
	refreshClaims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "refresh",
		Exp:    refreshExpiry.Unix(),
		Iat:    now.Unix(),
	}

	refreshTokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshToken, err = refreshTokenObj.SignedString(j.secretKey)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, accessExpiry.Unix(), nil
}

// GenerateAccessToken issues a fresh access token.
func (j *JWTService) GenerateAccessToken(userID, email string) (string, int64, error) {
	now := time.Now()
	expiry := now.Add(15 * time.Minute)

	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "access",
		Exp:    expiry.Unix(),
		Iat:    now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	return tokenString, expiry.Unix(), nil
}

// ValidateToken parses and verifies a token of either type.
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if time.Now().Unix() > claims.Exp {
		return nil, fmt.Errorf("token expired")
	}

	return claims, nil
}

// ValidateRefreshToken verifies a token and requires the refresh type.
func (j *JWTService) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != "refresh" {
		return nil, fmt.Errorf("invalid token type: expected refresh, got %s", claims.Type)
	}

	return claims, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (j *JWTService) RefreshAccessToken(refreshToken string) (string, int64, error) {
	claims, err := j.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", 0, fmt.Errorf("invalid refresh token: %w", err)
	}

	return j.GenerateAccessToken(claims.UserID, claims.Email)
}

// ExtractUserFromToken builds a minimal User from token claims.
func (j *JWTService) ExtractUserFromToken(tokenString string) (*models.User, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:    claims.UserID,
		Email: claims.Email,
	}, nil
}
