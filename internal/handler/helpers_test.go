package handler

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pagenook/notegraph/internal/pkg/errcode"
	appErr "github.com/pagenook/notegraph/internal/pkg/errors"
	"github.com/pagenook/notegraph/internal/taskqueue"
)

func responseCode(t *testing.T, err error) float64 {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("POST", "/api/v1/rag/build", nil)
	handleError(c, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	code, _ := body["code"].(float64)
	return code
}

func TestHandleErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appErr.ErrNotFound, errcode.ErrNotFound},
		{appErr.ErrInvalid, errcode.ErrInvalid},
		{appErr.ErrBuildRunning, errcode.ErrConflict},
		{appErr.ErrBadCredential, errcode.ErrBadCredential},
		{fmt.Errorf("%w: status 429", appErr.ErrProviderThrottled), errcode.ErrProviderFailed},
		{taskqueue.ErrQueueFull, errcode.ErrBuildQueueFull},
		{taskqueue.ErrStopped, errcode.ErrBuildQueueFull},
		{fmt.Errorf("plain failure"), errcode.ErrInternal},
	}
	for _, tc := range tests {
		require.Equal(t, float64(tc.want), responseCode(t, tc.err), "error %v", tc.err)
	}
}
