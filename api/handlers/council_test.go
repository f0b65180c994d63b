package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/council"
	"github.com/moltenlabs/councilflow/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := council.NewMemoryStore(council.MemoryStoreConfig{}, nil)
	t.Cleanup(func() { store.Close() })

	analyzer := council.NewSeededAnalyzer(1)
	factory := council.NewFactory(store, analyzer, nil, council.WithFactorySeed(1))
	aggregator := council.NewAggregator(nil, council.WithAggregatorSeed(1))
	engine := council.NewEngine(store, factory, analyzer, aggregator, nil)

	mux := http.NewServeMux()
	NewCouncilHandler(engine, nil, zap.NewNop()).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, Response) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func getJSON(t *testing.T, url string) (*http.Response, Response) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) Response {
	t.Helper()
	defer resp.Body.Close()
	var env Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

// dataField re-decodes the envelope's Data into a typed value.
func dataField(t *testing.T, env Response, dst interface{}) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func createCouncil(t *testing.T, srv *httptest.Server, crypto string) types.Council {
	t.Helper()
	resp, env := postJSON(t, srv.URL+"/api/v1/councils", map[string]string{"crypto": crypto})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	var c types.Council
	dataField(t, env, &c)
	return c
}

func TestCouncilAPI_CreateAndGet(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	c := createCouncil(t, srv, "btc")
	assert.Equal(t, "BTC", c.Crypto)
	assert.Equal(t, types.StatusPending, c.Status)
	assert.Len(t, c.Members, council.PanelSize)

	resp, env := getJSON(t, srv.URL+"/api/v1/councils/"+c.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	var got types.Council
	dataField(t, env, &got)
	assert.Equal(t, c.ID, got.ID)
}

func TestCouncilAPI_CreateRejectsEmptySymbol(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, env := postJSON(t, srv.URL+"/api/v1/councils", map[string]string{"crypto": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrInvalidRequest), env.Error.Code)
}

func TestCouncilAPI_UnknownIDIs404(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, env := getJSON(t, srv.URL+"/api/v1/councils/no-such-id")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrNotFound), env.Error.Code)
}

func TestCouncilAPI_ListByStatus(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	createCouncil(t, srv, "BTC")
	createCouncil(t, srv, "ETH")

	resp, env := getJSON(t, srv.URL+"/api/v1/councils?status=pending")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list []types.Council
	dataField(t, env, &list)
	assert.Len(t, list, 2)

	// Missing status parameter is rejected.
	resp, env = getJSON(t, srv.URL+"/api/v1/councils")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(types.ErrInvalidRequest), env.Error.Code)
}

func TestCouncilAPI_FullRatingsLifecycle(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	c := createCouncil(t, srv, "SOL")

	// Ratings on a pending council conflict.
	resp, env := postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/ratings", struct{}{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(types.ErrInvalidTransition), env.Error.Code)

	// Confirm.
	resp, env = postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/confirm", struct{}{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var confirm struct {
		CouncilID string `json:"council_id"`
		Confirmed bool   `json:"confirmed"`
	}
	dataField(t, env, &confirm)
	assert.True(t, confirm.Confirmed)

	// Second confirm reports false but still 200.
	resp, env = postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/confirm", struct{}{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	dataField(t, env, &confirm)
	assert.False(t, confirm.Confirmed)

	// Collect ratings.
	resp, env = postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/ratings", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var verdict struct {
		Report *types.VerdictReport `json:"report"`
		Text   string               `json:"text"`
	}
	dataField(t, env, &verdict)
	require.NotNil(t, verdict.Report)
	assert.Equal(t, "SOL", verdict.Report.Crypto)
	assert.Len(t, verdict.Report.Members, council.PanelSize)
	assert.Contains(t, verdict.Text, "SOL")
	assert.Contains(t, verdict.Text, fmt.Sprintf("Overall Rating: %.1f/10", verdict.Report.AvgRating))

	// Verdict replays from the frozen council.
	resp, env = getJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/verdict")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var replay struct {
		Report *types.VerdictReport `json:"report"`
		Text   string               `json:"text"`
	}
	dataField(t, env, &replay)
	assert.Equal(t, verdict.Report.Narrative, replay.Report.Narrative)
}

func TestCouncilAPI_ProgressivePipeline(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	c := createCouncil(t, srv, "DOGE")
	resp, _ := postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/confirm", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < council.StageCount; i++ {
		resp, env := postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/next", struct{}{})
		require.Equal(t, http.StatusOK, resp.StatusCode, "advance %d", i)

		var payload struct {
			Advance council.StageAdvance `json:"advance"`
			Text    string               `json:"text"`
		}
		dataField(t, env, &payload)
		assert.Equal(t, i, payload.Advance.StageIndex)
		assert.Equal(t, i == council.StageCount-1, payload.Advance.Final)
		assert.Contains(t, payload.Text, fmt.Sprintf("Stage %d/%d", i+1, council.StageCount))
	}

	// Sixth advance conflicts: the council is complete.
	resp, env := postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/next", struct{}{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(types.ErrInvalidTransition), env.Error.Code)

	// The verdict of a progressively completed council renders.
	resp, env = getJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/verdict")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCouncilAPI_PaginatedVerdict(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	c := createCouncil(t, srv, "PEPE")
	postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/confirm", struct{}{})
	postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/ratings", struct{}{})

	resp, env := getJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/verdict?paginated=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Chunks []string `json:"chunks"`
	}
	dataField(t, env, &payload)
	require.NotEmpty(t, payload.Chunks)
}

func TestCouncilAPI_MethodEnforcement(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	c := createCouncil(t, srv, "BTC")

	// GET on a POST-only action.
	resp, err := http.Get(srv.URL + "/api/v1/councils/" + c.ID + "/confirm")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	// Unknown action.
	resp2, env := postJSON(t, srv.URL+"/api/v1/councils/"+c.ID+"/destroy", struct{}{})
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
	assert.Equal(t, string(types.ErrNotFound), env.Error.Code)
}

func TestCouncilAPI_RejectsUnknownJSONFields(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, env := postJSON(t, srv.URL+"/api/v1/councils", map[string]string{"crypto": "BTC", "bogus": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(types.ErrInvalidRequest), env.Error.Code)
}

func TestTriggerAPI_EndToEnd(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	url := srv.URL + "/api/v1/triggers"

	// "rate btc" assembles a council.
	resp, env := postJSON(t, url, map[string]string{"text": "rate btc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rated struct {
		Intent struct {
			Kind   string `json:"kind"`
			Symbol string `json:"symbol"`
		} `json:"intent"`
		Result types.Council `json:"result"`
		Text   string        `json:"text"`
	}
	dataField(t, env, &rated)
	assert.Equal(t, "rate", rated.Intent.Kind)
	assert.Equal(t, "BTC", rated.Intent.Symbol)
	assert.Contains(t, rated.Text, "BTC")
	councilID := rated.Result.ID
	require.NotEmpty(t, councilID)

	// "confirm" with no id falls back to the oldest pending council.
	resp, env = postJSON(t, url, map[string]string{"text": "confirm"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var confirmed struct {
		Result struct {
			CouncilID string `json:"council_id"`
			Confirmed bool   `json:"confirmed"`
		} `json:"result"`
	}
	dataField(t, env, &confirmed)
	assert.Equal(t, councilID, confirmed.Result.CouncilID)
	assert.True(t, confirmed.Result.Confirmed)

	// "next" advances the now-active council.
	resp, env = postJSON(t, url, map[string]string{"text": "next"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var advanced struct {
		Text string `json:"text"`
	}
	dataField(t, env, &advanced)
	assert.Contains(t, advanced.Text, "Stage 1/5")

	// Unrelated text resolves to no intent.
	resp, env = postJSON(t, url, map[string]string{"text": "good morning"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var none struct {
		Intent struct {
			Kind string `json:"kind"`
		} `json:"intent"`
		Text string `json:"text"`
	}
	dataField(t, env, &none)
	assert.Equal(t, "none", none.Intent.Kind)

	// "verdict" with nothing complete is a 404.
	resp, env = postJSON(t, url, map[string]string{"text": "verdict"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(types.ErrNotFound), env.Error.Code)
}

func TestTriggerAPI_ExplicitIDTargetsCouncil(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	url := srv.URL + "/api/v1/triggers"

	a := createCouncil(t, srv, "BTC")
	b := createCouncil(t, srv, "ETH")

	// Pinning the second council skips the oldest-first fallback.
	resp, env := postJSON(t, url, map[string]string{"text": "confirm", "council_id": b.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var confirmed struct {
		Result struct {
			CouncilID string `json:"council_id"`
			Confirmed bool   `json:"confirmed"`
		} `json:"result"`
	}
	dataField(t, env, &confirmed)
	assert.Equal(t, b.ID, confirmed.Result.CouncilID)
	assert.True(t, confirmed.Result.Confirmed)

	// The first council is still pending.
	_, env = getJSON(t, srv.URL+"/api/v1/councils/"+a.ID)
	var got types.Council
	dataField(t, env, &got)
	assert.Equal(t, types.StatusPending, got.Status)
}
