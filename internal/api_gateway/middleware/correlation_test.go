package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type correlationSeen struct {
	header  string
	gin     string
	request string
}

func serveWithCorrelation(t *testing.T, incoming string) correlationSeen {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen correlationSeen
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/me/balance", func(c *gin.Context) {
		seen.gin = GetCorrelationID(c)
		seen.request = shared.CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me/balance", nil)
	if incoming != "" {
		req.Header.Set(CorrelationIDHeader, incoming)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	seen.header = rr.Header().Get(CorrelationIDHeader)
	return seen
}

func TestCorrelationID_KeepsCallerValue(t *testing.T) {
	for _, id := range []string{uuid.NewString(), "corr-42", "checkout:7f3a"} {
		seen := serveWithCorrelation(t, id)
		assert.Equal(t, correlationSeen{header: id, gin: id, request: id}, seen)
	}
}

func TestCorrelationID_GeneratesReplacement(t *testing.T) {
	tests := map[string]string{
		"missing":       "",
		"overlong":      strings.Repeat("a", maxCorrelationIDLength+1),
		"embedded line": "abc\ninjected",
		"space":         "two words",
		"non ascii":     "id-é",
	}

	for name, incoming := range tests {
		t.Run(name, func(t *testing.T) {
			seen := serveWithCorrelation(t, incoming)

			_, err := uuid.Parse(seen.header)
			assert.NoError(t, err, "replacement should be a uuid")
			assert.Equal(t, seen.header, seen.gin)
			assert.Equal(t, seen.header, seen.request)
		})
	}
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCorrelationID(c))

	c.Set(CorrelationIDKey, 12345)
	assert.Empty(t, GetCorrelationID(c), "non-string values are ignored")

	c.Set(CorrelationIDKey, "corr-1")
	assert.Equal(t, "corr-1", GetCorrelationID(c))
}
