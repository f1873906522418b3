package httpadapter_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/halcyonlabs/halcyon/internal/adapters/http"
	"github.com/halcyonlabs/halcyon/internal/adapters/llm"
	"github.com/halcyonlabs/halcyon/internal/adapters/storage/memory"
	"github.com/halcyonlabs/halcyon/internal/app/activity"
	"github.com/halcyonlabs/halcyon/internal/app/insights"
	"github.com/halcyonlabs/halcyon/internal/app/session"
)

func newTestServer(t *testing.T) (http.Handler, *llm.MockLLM) {
	t.Helper()

	mock := llm.NewMockLLM()
	sessions := session.NewService(mock, memory.NewSessionStore(), nil, session.Config{
		Rand: func(n int) int { return 0 },
	})
	activities := activity.NewService(memory.NewActivityStore())

	return httpadapter.NewServer(sessions, activities, insights.NewEngine()), mock
}

func doRequest(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func startSession(t *testing.T, h http.Handler, userID string) string {
	t.Helper()

	rec := doRequest(t, h, http.MethodPost, "/sessions", userID, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestMissingIdentityHeader(t *testing.T) {
	h, _ := newTestServer(t)

	for _, route := range []struct {
		method, path string
	}{
		{http.MethodPost, "/sessions"},
		{http.MethodGet, "/sessions"},
		{http.MethodGet, "/dashboard"},
		{http.MethodPost, "/moods"},
	} {
		rec := doRequest(t, h, route.method, route.path, "", "{}")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestStartAndGetSession(t *testing.T) {
	h, _ := newTestServer(t)

	id := startSession(t, h, "alice")

	rec := doRequest(t, h, http.MethodGet, "/sessions/"+id, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "alice", body["userId"])
	assert.Equal(t, "active", body["status"])
}

func TestGetSessionEnforcesOwnership(t *testing.T) {
	h, _ := newTestServer(t)

	id := startSession(t, h, "alice")

	rec := doRequest(t, h, http.MethodGet, "/sessions/"+id, "mallory", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/sessions/nope", "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageReturnsReplyAndAnalysis(t *testing.T) {
	h, mock := newTestServer(t)

	id := startSession(t, h, "alice")

	mock.Enqueue(
		`{"emotionalState":"hopeful","themes":["progress"],"riskLevel":1,"recommendedApproach":"supportive","progressIndicators":[]}`,
		"That sounds like a real step forward.",
	)

	rec := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/messages",
		"alice", `{"message":"today went better than expected"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "That sounds like a real step forward.", body["response"])
	assert.Nil(t, body["stressSignal"])

	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hopeful", analysis["emotionalState"])

	metadata, ok := body["metadata"].(map[string]any)
	require.True(t, ok)
	progress, ok := metadata["progress"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hopeful", progress["emotionalState"])
}

func TestSendMessageStressSignalShortCircuits(t *testing.T) {
	h, mock := newTestServer(t)

	id := startSession(t, h, "alice")

	rec := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/messages",
		"alice", `{"message":"I feel so overwhelmed right now"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Nil(t, body["response"])

	signal, ok := body["stressSignal"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "overwhelmed", signal["trigger"])
	calming, ok := signal["activity"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "breathing", calming["type"])

	assert.Equal(t, 0, mock.Calls())
}

func TestSendMessageValidation(t *testing.T) {
	h, _ := newTestServer(t)

	id := startSession(t, h, "alice")

	rec := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/messages", "alice", `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/sessions/"+id+"/messages", "alice", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClosedSessionRejectsTurns(t *testing.T) {
	h, _ := newTestServer(t)

	id := startSession(t, h, "alice")

	rec := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/close", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", decodeBody(t, rec)["status"])

	rec = doRequest(t, h, http.MethodPost, "/sessions/"+id+"/messages",
		"alice", `{"message":"hello again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListSessions(t *testing.T) {
	h, _ := newTestServer(t)

	startSession(t, h, "alice")
	startSession(t, h, "alice")
	startSession(t, h, "bob")

	rec := doRequest(t, h, http.MethodGet, "/sessions", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	sessions, ok := body["sessions"].([]any)
	require.True(t, ok)
	assert.Len(t, sessions, 2)
}

func TestLogActivityAndDashboard(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/activities", "alice",
		`{"type":"meditation","name":"Morning meditation","duration":10}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["completed"])

	rec = doRequest(t, h, http.MethodPost, "/moods", "alice", `{"score":70,"note":"pretty good"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/dashboard", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(70), stats["moodScore"])

	_, ok = body["insights"].([]any)
	require.True(t, ok)
}

func TestMoodValidation(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/moods", "alice", `{"score":101}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
