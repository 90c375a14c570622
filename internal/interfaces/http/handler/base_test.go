package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/interfaces/http/dto"
	"github.com/retail/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func performError(t *testing.T, err error) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	router := gin.New()
	h := &BaseHandler{}
	router.GET("/boom", func(c *gin.Context) {
		h.HandleDomainError(c, err)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestBaseHandler_HandleDomainError(t *testing.T) {
	t.Run("maps domain codes to status codes", func(t *testing.T) {
		cases := []struct {
			err    *shared.DomainError
			status int
		}{
			{shared.ErrNotFound, http.StatusNotFound},
			{shared.ErrValidation, http.StatusBadRequest},
			{shared.ErrInvalidMovement, http.StatusBadRequest},
			{shared.ErrInsufficientStock, http.StatusUnprocessableEntity},
			{shared.ErrIllegalTransition, http.StatusUnprocessableEntity},
			{shared.ErrConcurrencyConflict, http.StatusConflict},
		}

		for _, tc := range cases {
			t.Run(tc.err.Code, func(t *testing.T) {
				w, resp := performError(t, tc.err)
				assert.Equal(t, tc.status, w.Code)
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.err.Code, resp.Error.Code)
			})
		}
	})

	t.Run("structured details pass through to the client", func(t *testing.T) {
		err := shared.ErrInsufficientStock.WithDetails(map[string]any{
			"shortages": []map[string]any{
				{"requested": 10, "available": 4},
			},
		})

		w, resp := performError(t, err)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Details, "shortages")
	})

	t.Run("wrapped domain errors are unwrapped", func(t *testing.T) {
		w, resp := performError(t, errors.Join(shared.ErrNotFound))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	})

	t.Run("unknown errors become opaque internal errors", func(t *testing.T) {
		w, resp := performError(t, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "pq:")
	})
}

func TestStockHandler_BindingErrors(t *testing.T) {
	// Binding failures are rejected before the service is touched,
	// so a nil service is safe here.
	h := NewStockHandler(nil)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1"))

	t.Run("import without lines is rejected with field details", func(t *testing.T) {
		body := `{"branch_id":"3f2e8b1c-0000-4000-8000-000000000001","created_by":"3f2e8b1c-0000-4000-8000-000000000002","lines":[]}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/imports", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Contains(t, resp.Error.Details, "fields")
	})

	t.Run("entry lookup rejects malformed UUIDs", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/entries/lookup?branch_id=nope", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("movement with invalid id is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/movements/not-a-uuid", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
