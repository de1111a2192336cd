package automation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svc "github.com/jwalitptl/notify-engine/internal/service/automation"
	"github.com/jwalitptl/notify-engine/pkg/logger"
)

type fakeRunner struct {
	runErr  error
	state   string
	lastRun *svc.RunSummary
	runs    int
}

func (f *fakeRunner) Run(context.Context) error {
	f.runs++
	return f.runErr
}

func (f *fakeRunner) Status() (string, *svc.RunSummary) {
	return f.state, f.lastRun
}

func setupRouter(runner *fakeRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(runner, logger.NewLogger(nil)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestRunEndpoint(t *testing.T) {
	runner := &fakeRunner{state: "idle", lastRun: &svc.RunSummary{Sent: 3}}
	r := setupRouter(runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/automation/run", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.runs)

	var body struct {
		Status string          `json:"status"`
		Data   *svc.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	require.NotNil(t, body.Data)
	assert.Equal(t, 3, body.Data.Sent)
}

func TestRunEndpointConflictWhileRunning(t *testing.T) {
	runner := &fakeRunner{state: "running", runErr: svc.ErrAlreadyRunning}
	r := setupRouter(runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/automation/run", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already in progress")
}

func TestStatusEndpoint(t *testing.T) {
	runner := &fakeRunner{state: "idle"}
	r := setupRouter(runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/automation/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"idle"`)
}
