package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
	chatService "github.com/zhouzirui/genie-widget/internal/service/chat"
)

func setupRouter() http.Handler {
	client := answer.NewClient(config.AnswerConfig{BaseURL: "http://genie.local", Path: "/api/chat"})
	return NewRouter(client, chatService.NewService(), config.DefaultWidgetConfig())
}

func TestHealthReportsAnswerEndpoint(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "http://genie.local/api/chat", body["answerEndpoint"])
	require.Equal(t, float64(0), body["sessions"])
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	require.JSONEq(t, `{"error":"Endpoint not found"}`, resp.Body.String())
}

func TestIndexServesWidgetPage(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `id="chatMessages"`)
}

func TestUnknownSessionReturns404(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/widget/sessions/missing", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	require.JSONEq(t, `{"error":"session not found"}`, resp.Body.String())
}
