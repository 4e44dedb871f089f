package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop-pos/internal/auth"
	"shop-pos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newEngine(tokens *auth.TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", AuthMiddleware(tokens))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "role": c.GetString(RoleKey)})
	})
	api.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	r := newEngine(tokens)

	require.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "").Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "Token abc").Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "Bearer garbage").Code)

	other := auth.NewTokenIssuer("other-secret", time.Hour)
	forged, _, err := other.GenerateToken(&models.User{ID: 1, Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "Bearer "+forged).Code)

	cashier, _, err := tokens.GenerateToken(&models.User{ID: 7, Username: "sara", Role: models.RoleCashier})
	require.NoError(t, err)
	w := do(r, "/api/me", "Bearer "+cashier)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":7,"role":"Cashier"}`, w.Body.String())
	require.Equal(t, http.StatusForbidden, do(r, "/api/admin", "Bearer "+cashier).Code)

	admin, _, err := tokens.GenerateToken(&models.User{ID: 1, Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, do(r, "/api/admin", "Bearer "+admin).Code)
}
