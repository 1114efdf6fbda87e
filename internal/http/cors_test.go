package http

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, parseOrigins(""))
	})

	t.Run("single origin", func(t *testing.T) {
		assert.Equal(t, []string{"https://admin.example.com"}, parseOrigins("https://admin.example.com"))
	})

	t.Run("multiple origins with whitespace", func(t *testing.T) {
		origins := parseOrigins(" https://a.example.com , https://b.example.com ")
		assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, origins)
	})

	t.Run("skips empty segments", func(t *testing.T) {
		origins := parseOrigins("https://a.example.com,,  ,https://b.example.com")
		assert.Len(t, origins, 2)
	})
}

func TestCreateCORSMiddleware(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("disabled returns nil", func(t *testing.T) {
		assert.Nil(t, createCORSMiddleware(false, "https://admin.example.com", logger))
	})

	t.Run("enabled without origins returns nil", func(t *testing.T) {
		assert.Nil(t, createCORSMiddleware(true, "", logger))
		assert.Nil(t, createCORSMiddleware(true, " , ", logger))
	})

	t.Run("enabled with origins", func(t *testing.T) {
		assert.NotNil(t, createCORSMiddleware(true, "https://admin.example.com", logger))
	})
}
