package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"crm-relay/internal/auth"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, role string, allowed ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	if role != "" {
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "ops", role))
			c.Next()
		})
	}
	r.GET("/x", append([]gin.HandlerFunc{RequireAnyRole(allowed...)}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole(t *testing.T) {
	if code := doRequest(t, RoleOperator, RoleOperator); code != http.StatusOK {
		t.Fatalf("operator should pass, got %d", code)
	}
	if code := doRequest(t, RoleOperator); code != http.StatusForbidden {
		t.Fatalf("operator not in allowed set should be forbidden, got %d", code)
	}
	if code := doRequest(t, RoleAdmin, RoleOperator); code != http.StatusOK {
		t.Fatalf("admin should bypass, got %d", code)
	}
	if code := doRequest(t, "", RoleOperator); code != http.StatusUnauthorized {
		t.Fatalf("missing role should be unauthorized, got %d", code)
	}
}
