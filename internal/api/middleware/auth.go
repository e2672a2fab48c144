package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ticketgate/gate-api/internal/api/handler/v1/response"
	"github.com/ticketgate/gate-api/internal/pkg/jwthelper"
)

const (
	operatorKey = "operator"
	roleKey     = "operator_role"
)

var ErrMissingToken = errors.New("missing bearer token")

type Authenticator struct {
	signingKey []byte
}

func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{
		signingKey: []byte(signingKey),
	}
}

// VerifyJWT accepts a bearer token from the Authorization header, or from
// the access_token query parameter for websocket clients that cannot set
// headers.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := strings.CutPrefix(ctx.GetHeader("Authorization"), "Bearer ")
		if !ok {
			tokenString = ctx.Query("access_token")
		}
		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(ErrMissingToken))
			return
		}

		claims, err := jwthelper.ParseToken(a.signingKey, tokenString)
		if err != nil {
			err = fmt.Errorf("VerifyJWT -> jwthelper.ParseToken -> %w", err)
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			return
		}

		ctx.Set(operatorKey, claims.Operator)
		ctx.Set(roleKey, claims.Role)
		ctx.Next()
	}
}

// Operator returns the operator name set by VerifyJWT, or "" on routes
// without authentication.
func Operator(ctx *gin.Context) string {
	return ctx.GetString(operatorKey)
}

func OperatorRole(ctx *gin.Context) string {
	return ctx.GetString(roleKey)
}
