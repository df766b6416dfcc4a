package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/gigflow/internal/model"
)

type staticParser map[string]model.Principal

func (p staticParser) Parse(token string) (model.Principal, error) {
	principal, ok := p[token]
	if !ok {
		return model.Principal{}, errors.New("unknown token")
	}
	return principal, nil
}

func newAuthRouter(parser TokenParser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", Auth(parser, "token"), func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, principal.UserID.String())
	})
	return router
}

func TestAuthTokenSources(t *testing.T) {
	alice := model.Principal{UserID: uuid.New()}
	router := newAuthRouter(staticParser{"good": alice})

	tests := map[string]func(r *http.Request){
		"bearer header": func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
		"cookie":        func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "good"}) },
		"query":         func(r *http.Request) { r.URL.RawQuery = "access_token=good" },
	}
	for name, prepare := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			prepare(req)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, alice.UserID.String(), rec.Body.String())
		})
	}
}

func TestAuthRejects(t *testing.T) {
	router := newAuthRouter(staticParser{"good": {UserID: uuid.New()}})

	tests := map[string]func(r *http.Request){
		"missing":       func(r *http.Request) {},
		"unknown token": func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") },
		"wrong scheme":  func(r *http.Request) { r.Header.Set("Authorization", "Basic good") },
	}
	for name, prepare := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			prepare(req)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMustPrincipalWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := MustPrincipal(c)
	assert.False(t, ok)

	c.Set(principalKey, model.Principal{})
	_, ok = MustPrincipal(c)
	assert.False(t, ok)
}
