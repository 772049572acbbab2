package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/pkg/auth"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

const ContextActor = "actor"

type AuthMiddleware struct {
	jwt *auth.JWTService
}

func NewAuthMiddleware(jwt *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and stores the actor in both the gin
// context and the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthorized(nil).WithDetail("reason", "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, errors.Unauthorized(nil).WithDetail("reason", "invalid authorization format"))
			return
		}

		actor, err := m.jwt.Validate(parts[1])
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized(err))
			return
		}

		c.Set(ContextActor, actor)
		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireDoctorAccess rejects requests whose actor may not manage the doctor
// named by the path parameter param.
func (m *AuthMiddleware) RequireDoctorAccess(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctorID, err := uuid.Parse(c.Param(param))
		if err != nil {
			httputil.RespondWithError(c, errors.BadRequest("invalid doctor id", err))
			return
		}
		if err := Authorize(c, doctorID); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		c.Next()
	}
}

// Authorize checks the authenticated actor against doctorID. Handlers call it
// when the doctor comes from the request body.
func Authorize(c *gin.Context, doctorID uuid.UUID) error {
	actor, ok := auth.ActorFrom(c.Request.Context())
	if !ok {
		return errors.Unauthorized(nil)
	}
	if !actor.CanManage(doctorID) {
		return errors.Forbidden("not allowed to act for this doctor")
	}
	return nil
}
