package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/textdigest-backend/internal/logger"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthRouter(t *testing.T) (*gin.Engine, *uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.Nop(), testSecret)
	var seen uuid.UUID
	router := gin.New()
	router.GET("/protected", am.RequireAuth(), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		seen = id
		c.Status(http.StatusOK)
	})
	return router, &seen
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	router, seen := newAuthRouter(t)
	userID := uuid.New()
	token := signToken(t, testSecret, jwt.MapClaims{"sub": userID.String()})

	w := doRequest(router, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *seen != userID {
		t.Fatalf("handler saw user %s, want %s", *seen, userID)
	}
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := doRequest(router, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	router, _ := newAuthRouter(t)
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": uuid.New().String()})

	w := doRequest(router, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthRejectsNonUUIDSubject(t *testing.T) {
	router, _ := newAuthRouter(t)
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "not-a-uuid"})

	w := doRequest(router, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthRejectsUnsignedToken(t *testing.T) {
	router, _ := newAuthRouter(t)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": uuid.New().String()})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	w := doRequest(router, "Bearer "+unsigned)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
