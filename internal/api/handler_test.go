package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-relay/internal/dispatch"
	"call-relay/internal/engine"
	"call-relay/internal/event"
)

type mockDispatcher struct {
	logErr error
	panics bool
	calls  []event.NormalizedEvent
}

func (m *mockDispatcher) Dispatch(_ context.Context, v engine.Verdict, ev event.NormalizedEvent) dispatch.Result {
	if m.panics {
		panic("sink exploded")
	}
	m.calls = append(m.calls, ev)
	return dispatch.Result{Time: "2025-01-29 14:05:09 UTC", Logged: m.logErr == nil, LogErr: m.logErr}
}

func (m *mockDispatcher) LogSinkName() string      { return "sheets" }
func (m *mockDispatcher) AlertSinkNames() []string { return []string{"slack"} }

var filter = engine.FilterConfig{CampaignName: "X", TargetName: "T"}

func newTestRouter(d *mockDispatcher) http.Handler {
	return Router(NewWebhookHandler(engine.NewEngine(filter), d), 5*time.Second)
}

func TestWebhook_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		logErr     error
		wantStatus int
		wantBody   map[string]any
		wantCalls  int
	}{
		{"empty body", "", nil, http.StatusOK, map[string]any{"status": "received"}, 0},
		{"empty object", "{}", nil, http.StatusOK, map[string]any{"status": "received"}, 0},
		{"null", "null", nil, http.StatusOK, map[string]any{"status": "received"}, 0},
		{"bad encoding", "{\"a\":\"\xfe\"}", nil, http.StatusBadRequest, map[string]any{"error": "Invalid request encoding"}, 0},
		{"bad json", "{not json", nil, http.StatusBadRequest, map[string]any{"error": "Invalid JSON data"}, 0},
		{"json array", `[1,2]`, nil, http.StatusBadRequest, map[string]any{"error": "Invalid JSON data"}, 0},
		{"trailing bracket", `{"campaignName":"X","targetName":"T"}]`, nil, http.StatusBadRequest, map[string]any{"error": "Invalid JSON data"}, 0},
		{"trailing brace", `{"campaignName":"X","targetName":"T"}}`, nil, http.StatusBadRequest, map[string]any{"error": "Invalid JSON data"}, 0},
		{
			name:       "campaign mismatch",
			body:       `{"campaignName":"Y","targetName":"T","callerId":"C1"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"status": "filtered"},
		},
		{
			name:       "no rule matched",
			body:       `{"campaignName":"X","targetName":"Other","callLengthFromConnect":30}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"status": "filtered"},
		},
		{
			name:       "no value blank target",
			body:       `{"campaignName":"X","targetName":"","callerId":"C1"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"status": "success", "callerId": "C1", "classification": "No Value", "time": "2025-01-29 14:05:09 UTC"},
			wantCalls:  1,
		},
		{
			name:       "matched target snake case",
			body:       `{"campaign_name":"X","target_name":"T","caller_id":"C2","call_length_from_connect":5,"end_call_source":"agent"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"status": "success", "callerId": "C2", "classification": "Matched Target"},
			wantCalls:  1,
		},
		{
			name:       "log failure",
			body:       `{"campaignName":"X","targetName":"T","CallLengthFromConnect":"0"}`,
			logErr:     errors.New("sheet unavailable"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "Failed to update call log"},
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDispatcher{logErr: tt.logErr}
			req := httptest.NewRequest(http.MethodPost, "/ringba-webhook", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			newTestRouter(d).ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			var got map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			for k, v := range tt.wantBody {
				assert.Equal(t, v, got[k], k)
			}
			assert.Len(t, d.calls, tt.wantCalls)
		})
	}
}

func TestWebhook_NoPayloadShowsExpectedFormat(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(&mockDispatcher{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		ExpectedFormat map[string]string `json:"expected_format"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "X", got.ExpectedFormat["campaignName"])
}

func TestWebhook_PanicIsInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	body := strings.NewReader(`{"campaignName":"X","targetName":""}`)
	newTestRouter(&mockDispatcher{panics: true}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ringba-webhook", body))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sink exploded")
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(&mockDispatcher{}))
	defer ts.Close()

	for _, path := range []string{"/", "/healthz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "healthy", got["status"])
		assert.Equal(t, map[string]any{"campaignName": "X", "targetName": "T"}, got["filters"])
		assert.Equal(t, "sheets", got["logSink"])
	}
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(&mockDispatcher{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ringba-webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
