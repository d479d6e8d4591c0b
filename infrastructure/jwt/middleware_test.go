package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/task-registry/infrastructure/jwt"
)

const secret = "test-secret"

func signed(t *testing.T, key string, expiresIn time.Duration) string {
	t.Helper()

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   "worker-1",
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(expiresIn)),
	})
	s, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + signed(t, secret, time.Hour), wantStatus: http.StatusOK},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + signed(t, "other", time.Hour), wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signed(t, secret, -time.Minute), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(jwt.Middleware(secret))
			router.GET("/tasks", func(c *gin.Context) {
				claims, ok := jwt.GetClaims(c)
				if assert.True(t, ok) {
					assert.Equal(t, "worker-1", claims.Subject)
				}
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/tasks", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
