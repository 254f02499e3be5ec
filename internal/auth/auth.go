package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.waggle/internal/model"
)

// ContextKeyUserID is where the middleware stores the resolved actor identity
// on the echo context.
const ContextKeyUserID = "authUserID"

// Verifier resolves a bearer credential to an actor identity. Session
// issuance lives elsewhere; this core only consumes the resolved identity.
type Verifier interface {
	Verify(token string) (model.UserID, error)
}

type jwtVerifier struct {
	signingKey []byte
}

func NewVerifier(signingKey string) Verifier {
	return &jwtVerifier{signingKey: []byte(signingKey)}
}

func (v *jwtVerifier) Verify(tokenString string) (model.UserID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil || !token.Valid {
		return "", model.ErrorInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", model.ErrorInvalidToken
	}
	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", model.ErrorInvalidToken
	}
	return model.UserID(subject), nil
}

// Middleware extracts the bearer token, resolves it and stores the user ID in
// context. Requests without a valid credential never reach a handler.
func Middleware(verifier Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				return echo.NewHTTPError(401, "missing bearer token")
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				return echo.NewHTTPError(401, "invalid bearer token")
			}
			c.Set(ContextKeyUserID, userID)
			return next(c)
		}
	}
}

// UserID returns the actor identity the middleware resolved for this request.
func UserID(c echo.Context) model.UserID {
	if id, ok := c.Get(ContextKeyUserID).(model.UserID); ok {
		return id
	}
	return ""
}
