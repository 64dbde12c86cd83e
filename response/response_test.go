package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeInvalidCredentials: http.StatusUnauthorized,
		CodeAccountLocked:      http.StatusForbidden,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeTooManyRequests:    http.StatusTooManyRequests,
		CodeInternal:           http.StatusInternalServerError,
		Code("SOMETHING_NEW"):  http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, code.Status(), code)
		assert.NotEmpty(t, code.Message(), code)
	}
}

func TestFailWritesEnvelopeAndAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, CodeAccountLocked)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusError, body.Status)
	assert.Equal(t, CodeAccountLocked, body.Code)
	assert.Equal(t, CodeAccountLocked.Message(), body.Message)
}

func TestOKMergesFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, gin.H{"redirect": "/login"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","redirect":"/login"}`, w.Body.String())
}
