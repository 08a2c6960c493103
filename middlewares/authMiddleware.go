package middlewares

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"gorm.io/gorm"
)

type authString string

const actorKey authString = "actor"

// AuthMiddleware resolves the Bearer token to an active user and pins the
// request context to the user's station when the role is station bound.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		bearer := "Bearer "
		if len(auth) <= len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
			RespondError(c, fmt.Errorf("%w: missing bearer token", utils.ErrUnauthenticated))
			return
		}
		auth = strings.TrimSpace(auth[len(bearer):])

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			RespondError(c, fmt.Errorf("%w: invalid token", utils.ErrUnauthenticated))
			return
		}
		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || customClaim.ID <= 0 {
			RespondError(c, fmt.Errorf("%w: invalid token", utils.ErrUnauthenticated))
			return
		}

		ctx := c.Request.Context()
		user, err := models.GetUser(utils.SetSkipTenantScopeInContext(ctx), db, customClaim.ID)
		if err != nil {
			if utils.IsClientError(err) {
				err = fmt.Errorf("%w: unknown user", utils.ErrUnauthenticated)
			}
			RespondError(c, err)
			return
		}
		if !user.Active() {
			RespondError(c, fmt.Errorf("%w: user is disabled", utils.ErrUnauthenticated))
			return
		}

		c.Request = c.Request.WithContext(WithActor(ctx, auth, user))
		c.Next()
	}
}

// WithActor stores the authenticated user and its tenant scope in ctx.
func WithActor(ctx context.Context, token string, user *models.User) context.Context {
	ctx = utils.SetTokenInContext(ctx, token)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserRoleInContext(ctx, string(user.Role))
	if user.Role.StationBound() {
		if user.StationId != nil {
			ctx = utils.SetStationIdInContext(ctx, *user.StationId)
		}
	} else {
		ctx = utils.SetIsAdminInContext(ctx, true)
	}
	return context.WithValue(ctx, actorKey, user)
}

// CurrentUser returns the user set by AuthMiddleware, or nil.
func CurrentUser(ctx context.Context) *models.User {
	raw, _ := ctx.Value(actorKey).(*models.User)
	return raw
}
