package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("whatever"))
}

func TestNew_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Service: "kasir", Env: "test", Level: "info", Out: &buf})

	l.Info().Msg("hello")
	l.Debug().Msg("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &m))
	assert.Equal(t, "kasir", m[SERVICE])
	assert.Equal(t, "test", m[ENV])
	assert.Equal(t, "hello", m["message"])
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	r := gin.New()
	r.Use(GinMiddleware(l))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var m map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m))
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, float64(404), m["status"])
	assert.Equal(t, "/missing", m["path"])
}
