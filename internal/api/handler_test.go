package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"linkprobe/internal/config"
	"linkprobe/internal/logger"
	"linkprobe/internal/model"
	"linkprobe/internal/prober"
)

func TestMain(m *testing.M) {
	logger.Init(false, "")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeStore records calls in memory.
type fakeStore struct {
	configs []model.Config
	results map[string]model.Result
	cleared bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{results: make(map[string]model.Result)}
}

func (s *fakeStore) ReplaceConfigs(configs []model.Config) error {
	s.configs = configs
	return nil
}

func (s *fakeStore) Configs() ([]model.Config, error) {
	return s.configs, nil
}

func (s *fakeStore) UpsertResult(res model.Result) error {
	s.results[res.ConfigID] = res
	return nil
}

func (s *fakeStore) ResultsByLatency(limit int) ([]model.Result, error) {
	var out []model.Result
	for _, r := range s.results {
		if r.Success {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Clear() error {
	s.cleared = true
	s.configs = nil
	s.results = make(map[string]model.Result)
	return nil
}

// successProber reports every endpoint alive with a fixed latency.
type successProber struct{}

func (successProber) Probe(_ context.Context, _ string, _ int) (bool, float64) {
	return true, 7.5
}

func testServer(st *fakeStore) *Server {
	orch := prober.NewOrchestrator(successProber{}, 10)
	return NewServer(st, orch, config.APIConfig{Listen: ":0", CORSOrigins: []string{"*"}})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestRootEndpoint(t *testing.T) {
	t.Parallel()

	w := doRequest(testServer(newFakeStore()), http.MethodGet, "/api/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "message") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestFetchConfigs(t *testing.T) {
	t.Parallel()

	subscription := strings.Join([]string{
		"vless://uuid@alpha.example.com:443#Alpha::DE",
		"trojan://pw@beta.example.com:8443#Beta",
		"garbage line",
		"",
	}, "\n")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(subscription))
	}))
	defer upstream.Close()

	st := newFakeStore()
	w := doRequest(testServer(st), http.MethodPost, "/api/configs/fetch",
		`{"url":"`+upstream.URL+`"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Total   int            `json:"total"`
		Configs []model.Config `json:"configs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Total != 2 || len(resp.Configs) != 2 {
		t.Fatalf("expected 2 decoded configs, got %d", resp.Total)
	}
	if len(st.configs) != 2 {
		t.Fatalf("configs not stored: %d", len(st.configs))
	}
	if st.configs[0].Country != "DE" {
		t.Fatalf("label metadata lost: %+v", st.configs[0])
	}
}

func TestFetchConfigsUpstreamError(t *testing.T) {
	t.Parallel()

	// Unroutable URL: the endpoint still answers 200 with an error body.
	w := doRequest(testServer(newFakeStore()), http.MethodPost, "/api/configs/fetch",
		`{"url":"http://127.0.0.1:1/nope"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
		Total int    `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Error == "" || resp.Total != 0 {
		t.Fatalf("expected error payload, got %s", w.Body.String())
	}
}

func TestTestBatch(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	body := `{"configs":[
		{"id":"one","protocol":"vless","server":"a.example","port":443,"name":"A"},
		{"id":"two","protocol":"trojan","server":"b.example","name":"B"}
	]}`
	w := doRequest(testServer(st), http.MethodPost, "/api/configs/test-batch", body)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Results []model.Result `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if len(st.results) != 2 {
		t.Fatalf("results not upserted: %d", len(st.results))
	}
	// Missing port defaults to 443 before probing.
	if st.results["two"].Port != 443 {
		t.Fatalf("expected defaulted port 443, got %d", st.results["two"].Port)
	}
	for _, res := range resp.Results {
		if !res.Success || res.LatencyMs != 7.5 {
			t.Fatalf("unexpected result %+v", res)
		}
		if res.TestedAt.IsZero() {
			t.Fatal("tested_at missing")
		}
	}
}

func TestGetResultsEmpty(t *testing.T) {
	t.Parallel()

	w := doRequest(testServer(newFakeStore()), http.MethodGet, "/api/configs/results", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Fatalf("empty result set must serialize as [], got %s", w.Body.String())
	}
}

func TestClearEndpoint(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	w := doRequest(testServer(st), http.MethodDelete, "/api/configs/clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !st.cleared {
		t.Fatal("store was not cleared")
	}
}
