package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutInput struct {
	Email    string `json:"email" binding:"required,email"`
	Currency string `json:"currency" binding:"omitempty,iso4217"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req checkoutInput
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	t.Run("reports fields by json name", func(t *testing.T) {
		w := postJSON(router, `{"email":"nope","currency":"US","quantity":0}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Code
		}
		assert.Equal(t, map[string]string{"email": "email", "currency": "iso4217", "quantity": "required"}, fields)
	})

	t.Run("valid input passes", func(t *testing.T) {
		w := postJSON(router, `{"email":"a@b.co","currency":"usd","quantity":2}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed body is a plain bad request", func(t *testing.T) {
		w := postJSON(router, `{"email":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeBadRequest)
	})
}

func TestMarketplaceTags(t *testing.T) {
	v := validator.New()
	registerMarketplaceTags(v)

	tests := []struct {
		tag   string
		value string
		ok    bool
	}{
		{"iso4217", "ZWG", true},
		{"iso4217", "zar", true},
		{"iso4217", "US1", false},
		{"iso4217", "EURO", false},
		{"slug", "harare-crafts", true},
		{"slug", "crafts2", true},
		{"slug", "Harare-Crafts", false},
		{"slug", "double--hyphen", false},
		{"slug", "-leading", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag+"/"+tt.value, func(t *testing.T) {
			err := v.Var(tt.value, tt.tag)
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}

func TestGetValidationMessage(t *testing.T) {
	type input struct {
		Name     string   `validate:"min=5"`
		Items    []string `validate:"min=1"`
		Currency string   `validate:"iso4217"`
	}
	v := validator.New()
	registerMarketplaceTags(v)

	err := v.Struct(input{Name: "ab", Currency: "x"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	messages := map[string]string{}
	for _, e := range verrs {
		messages[e.Field()] = getValidationMessage(e)
	}
	assert.Equal(t, "Must be at least 5 characters", messages["Name"])
	assert.Equal(t, "Must contain at least 1", messages["Items"])
	assert.Equal(t, "Must be a three letter currency code", messages["Currency"])
}
