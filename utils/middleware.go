package utils

import (
	"github.com/ErenEClk/SmartCom/models"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// GetClaims returns the verified caller identity for the current request.
func GetClaims(ctx iris.Context) *AccessToken {
	return jwt.Get(ctx).(*AccessToken)
}

// AdminOnlyMiddleware ensures the requester has the admin role.
func AdminOnlyMiddleware(ctx iris.Context) {
	claims := GetClaims(ctx)
	if claims.Role != models.RoleAdmin {
		SendError(ctx, iris.StatusForbidden, "admin access required")
		return
	}
	ctx.Next()
}

// StaffOnlyMiddleware ensures the requester holds one of the staff roles.
func StaffOnlyMiddleware(ctx iris.Context) {
	claims := GetClaims(ctx)
	if !claims.IsStaff() {
		SendError(ctx, iris.StatusForbidden, "staff access required")
		return
	}
	ctx.Next()
}

// RolesMiddleware allows only the listed roles through.
func RolesMiddleware(roles ...string) iris.Handler {
	return func(ctx iris.Context) {
		claims := GetClaims(ctx)
		for _, role := range roles {
			if claims.Role == role {
				ctx.Next()
				return
			}
		}
		SendError(ctx, iris.StatusForbidden, "insufficient role")
	}
}
