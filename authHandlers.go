package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/middlewares"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.RespondBindError(c, err)
		return
	}
	info, err := models.Login(c.Request.Context(), s.db, req.Email, req.Password, s.settings.TokenLifespan)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondOK(c, http.StatusOK, info)
}

func (s *server) me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	middlewares.RespondOK(c, http.StatusOK, actor)
}

// currentActor writes a 401 and returns false when the request carries no actor.
func currentActor(c *gin.Context) (*models.User, bool) {
	actor := middlewares.CurrentUser(c.Request.Context())
	if actor == nil {
		middlewares.RespondError(c, fmt.Errorf("%w: login required", utils.ErrUnauthenticated))
		return nil, false
	}
	return actor, true
}
