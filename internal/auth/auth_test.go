package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"uk.co.dudmesh.waggle/internal/model"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, subject string, expiresAt time.Time, key string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	if err != nil {
		t.Fatalf("signing token: %+v", err)
	}
	return signed
}

func TestVerify(t *testing.T) {
	assert := assert.New(t)
	verifier := NewVerifier(testSigningKey)

	t.Run("valid token resolves the subject", func(t *testing.T) {
		token := signToken(t, "alice", time.Now().Add(time.Hour), testSigningKey)
		userID, err := verifier.Verify(token)
		assert.Nil(err)
		assert.Equal(model.UserID("alice"), userID)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token := signToken(t, "alice", time.Now().Add(-time.Hour), testSigningKey)
		_, err := verifier.Verify(token)
		assert.ErrorIs(err, model.ErrorInvalidToken)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		token := signToken(t, "alice", time.Now().Add(time.Hour), "some-other-key")
		_, err := verifier.Verify(token)
		assert.ErrorIs(err, model.ErrorInvalidToken)
	})

	t.Run("missing subject is rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testSigningKey))
		assert.Nil(err)
		_, err = verifier.Verify(signed)
		assert.ErrorIs(err, model.ErrorInvalidToken)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := verifier.Verify("not-a-jwt")
		assert.ErrorIs(err, model.ErrorInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	assert := assert.New(t)
	verifier := NewVerifier(testSigningKey)

	server := echo.New()
	server.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, string(UserID(c)))
	}, Middleware(verifier))

	t.Run("resolved identity lands in context", func(t *testing.T) {
		token := signToken(t, "alice", time.Now().Add(time.Hour), testSigningKey)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		assert.Equal(http.StatusOK, rec.Code)
		assert.Equal("alice", rec.Body.String())
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(http.StatusUnauthorized, rec.Code)
	})
}
