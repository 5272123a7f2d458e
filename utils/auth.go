package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// JWT signing keys and lifetimes, set from configuration at startup.
var (
	JwtKey          = []byte("your_secret_key")
	RefreshKey      = []byte("your_refresh_secret_key")
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

// IsAdmin reports whether the token belongs to an administrator.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == "admin"
}

// GenerateAccessToken issues a short lived token used on every request.
func GenerateAccessToken(userID, role string) (string, error) {
	return signToken(userID, role, AccessTokenTTL, JwtKey)
}

// GenerateRefreshToken issues a long lived token used to mint access tokens.
func GenerateRefreshToken(userID, role string) (string, error) {
	return signToken(userID, role, RefreshTokenTTL, RefreshKey)
}

func signToken(userID, role string, ttl time.Duration, key []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseAccessToken verifies an access token.
func ParseAccessToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, JwtKey)
}

// ParseRefreshToken verifies a refresh token.
func ParseRefreshToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, RefreshKey)
}

func parseToken(tokenStr string, key []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, &AppError{Kind: KindAuth, Status: 401, Message: "Token expired. Please log in again.", Err: err}
		}
		return nil, &AppError{Kind: KindAuth, Status: 401, Message: "Invalid token", Err: err}
	}
	if !token.Valid || claims.UserID == "" {
		return nil, NewAuthError("Invalid token")
	}
	return claims, nil
}

// GenerateResetToken returns a random hex token for password resets.
func GenerateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
