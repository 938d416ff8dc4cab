package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	SetJWTSecret("test-secret")
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("user-1", "alice", time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{
			name:           "Missing authorization header",
			token:          "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid token format",
			token:          "InvalidToken",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Garbage bearer token",
			token:          "Bearer not.a.token",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			c.Request = req

			JWTAuth()(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestJWTAuthWithValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	token, err := GenerateToken("user-1", "alice", time.Hour)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	JWTAuth()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	userID, ok := GetUserID(c)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
}

func TestJWTAuthWithExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	token, err := GenerateToken("user-1", "alice", -time.Hour)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	JWTAuth()(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Anonymous requests pass through without a principal.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/test", nil)

	OptionalAuth()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := GetUserID(c)
	assert.False(t, ok)

	// A valid token attaches the principal.
	token, err := GenerateToken("user-2", "bob", time.Hour)
	assert.NoError(t, err)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	OptionalAuth()(c)

	userID, ok := GetUserID(c)
	assert.True(t, ok)
	assert.Equal(t, "user-2", userID)

	// A garbage token is ignored, not rejected.
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	c.Request = req

	OptionalAuth()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, ok = GetUserID(c)
	assert.False(t, ok)
}
