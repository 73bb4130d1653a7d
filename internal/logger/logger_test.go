package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", &buf)
	t.Cleanup(func() { Init("info") })

	Info().Msg("hidden")
	Warn().Str("key", "value").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "value", entry["key"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	InitWithWriter("info", &buf)
	t.Cleanup(func() { Init("info") })

	r := gin.New()
	r.Use(GinLogger(), GinRecovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), `"status":500`)
}
