package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/sirupsen/logrus"
)

// Every JSON response is wrapped as {success, data} or {success:false, error, details}.

func RespondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func RespondMessage(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{"success": true, "data": data, "message": message})
}

// RespondError maps err to its status. Errors outside the client taxonomy are
// logged and replaced with a generic message.
func RespondError(c *gin.Context, err error) {
	status := utils.ErrorStatus(err)
	body := gin.H{"success": false}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		status = http.StatusBadRequest
		body["error"] = utils.ErrValidation.Error()
		body["details"] = utils.ProcessValidationErrors(err)
	case status == http.StatusInternalServerError:
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.GetLogger().WithFields(logrus.Fields{
			"field":          "RespondError",
			"path":           c.FullPath(),
			"correlation_id": cid,
		}).Error(err.Error())
		body["error"] = "internal server error"
	default:
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// RespondBindError reports a malformed or invalid request body.
func RespondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   utils.ErrValidation.Error(),
		"details": utils.ProcessValidationErrors(err),
	})
}
