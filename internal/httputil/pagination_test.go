package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paginationContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/keys"+query, nil)
	return c
}

func TestParsePagination(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		offset, limit, err := ParsePagination(paginationContext(""))
		require.NoError(t, err)
		assert.Equal(t, 0, offset)
		assert.Equal(t, 50, limit)
	})

	t.Run("explicit values", func(t *testing.T) {
		offset, limit, err := ParsePagination(paginationContext("?offset=20&limit=10"))
		require.NoError(t, err)
		assert.Equal(t, 20, offset)
		assert.Equal(t, 10, limit)
	})

	t.Run("negative offset", func(t *testing.T) {
		_, _, err := ParsePagination(paginationContext("?offset=-1"))
		assert.Error(t, err)
	})

	t.Run("non-numeric offset", func(t *testing.T) {
		_, _, err := ParsePagination(paginationContext("?offset=abc"))
		assert.Error(t, err)
	})

	t.Run("zero limit", func(t *testing.T) {
		_, _, err := ParsePagination(paginationContext("?limit=0"))
		assert.Error(t, err)
	})

	t.Run("limit above cap", func(t *testing.T) {
		_, _, err := ParsePagination(paginationContext("?limit=101"))
		assert.Error(t, err)
	})

	t.Run("limit at cap", func(t *testing.T) {
		_, limit, err := ParsePagination(paginationContext("?limit=100"))
		require.NoError(t, err)
		assert.Equal(t, 100, limit)
	})
}
