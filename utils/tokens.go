package utils

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

var bgContext = context.Background()

// AccessToken is the minimal caller identity resolved from the bearer token
// and consumed by every handler.
type AccessToken struct {
	ID    uint   `json:"ID"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// IsAdmin reports whether the caller holds the admin role.
func (t *AccessToken) IsAdmin() bool {
	return t.Role == models.RoleAdmin
}

// IsStaff reports whether the caller holds any staff role.
func (t *AccessToken) IsStaff() bool {
	switch t.Role {
	case models.RoleAdmin, models.RoleSiteManager, models.RoleTechnicalSupport, models.RoleSecurity:
		return true
	}
	return false
}

// CreateTokenPair signs a 24h access token embedding the caller identity and
// a one-year refresh token tracked in Redis.
func CreateTokenPair(user *models.User) (*jwt.TokenPair, error) {
	accessTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 24*time.Hour)
	refreshTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("REFRESH_TOKEN_SECRET"), 365*24*time.Hour)

	userID := strconv.FormatUint(uint64(user.ID), 10)
	refreshClaims := jwt.Claims{Subject: userID}

	accessTokenClaims := AccessToken{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}

	accessToken, err := accessTokenSigner.Sign(accessTokenClaims)
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(refreshClaims)
	if err != nil {
		return nil, err
	}

	var tokenPair jwt.TokenPair
	tokenPair.AccessToken = accessToken
	tokenPair.RefreshToken = refreshToken

	if storage.Redis != nil {
		storage.Redis.Set(bgContext, string(refreshToken), "true", 365*24*time.Hour+5*time.Minute)
	}

	return &tokenPair, nil
}

// RefreshToken rotates a verified refresh token: the presented token is
// deleted from the allowlist and a fresh pair is issued.
func RefreshToken(ctx iris.Context) {
	token := jwt.GetVerifiedToken(ctx)
	tokenStr := string(token.Token)

	validToken, tokenErr := storage.Redis.Get(bgContext, tokenStr).Result()
	if tokenErr != nil {
		SendError(ctx, iris.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if validToken != "true" {
		SendError(ctx, iris.StatusForbidden, "Refresh token revoked")
		return
	}

	storage.Redis.Del(bgContext, tokenStr)
	userID, parseErr := strconv.ParseUint(token.StandardClaims.Subject, 10, 32)
	if parseErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	var user models.User
	found := storage.DB.Where("id = ? AND is_deleted = ?", uint(userID), false).Limit(1).Find(&user)
	if found.Error != nil || found.RowsAffected == 0 {
		SendError(ctx, iris.StatusUnauthorized, "Invalid refresh token")
		return
	}

	tokenPair, tokenPairErr := CreateTokenPair(&user)
	if tokenPairErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	SendData(ctx, iris.Map{
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}
