package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/model"
)

type staticParser struct {
	token     string
	principal model.Principal
}

func (p staticParser) Parse(token string) (model.Principal, error) {
	if token != p.token {
		return model.Principal{}, errors.New("bad token")
	}
	return p.principal, nil
}

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	want := model.Principal{UserID: uuid.New(), Role: model.RoleOperator}

	router := gin.New()
	router.Use(Auth(staticParser{token: "good", principal: want}))
	router.GET("/me", func(c *gin.Context) {
		p, ok := MustPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, p.UserID.String())
	})

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer good", "", http.StatusOK},
		{"lowercase scheme", "bearer good", "", http.StatusOK},
		{"query token", "", "?token=good", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", "", http.StatusUnauthorized},
		{"invalid", "Bearer bad", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && rec.Body.String() != want.UserID.String() {
				t.Fatalf("principal not propagated: %s", rec.Body.String())
			}
		})
	}
}
