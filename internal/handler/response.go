// Package handler holds helpers shared by the HTTP handlers.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

// Bind decodes the JSON body into obj and writes the error response when
// that fails. It reports whether the handler should continue.
func Bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		httputil.RespondWithError(c, middleware.BindingError(err))
		return false
	}
	return true
}

// UUIDParam parses a path parameter, writing a 400 on failure.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid "+name, err).WithDetail("param", name))
		return uuid.Nil, false
	}
	return id, true
}

// RequiredQuery returns a query parameter or writes a 400 when it is absent.
func RequiredQuery(c *gin.Context, name string) (string, bool) {
	v := c.Query(name)
	if v == "" {
		httputil.RespondWithError(c, errors.BadRequest(name+" query parameter is required", nil).WithDetail("param", name))
		return "", false
	}
	return v, true
}

// BoolQuery parses an optional boolean query parameter.
func BoolQuery(c *gin.Context, name string) (bool, bool) {
	v := c.Query(name)
	if v == "" {
		return false, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest(name+" must be true or false", err))
		return false, false
	}
	return b, true
}
