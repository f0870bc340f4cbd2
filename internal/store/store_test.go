package store

import (
	"path/filepath"
	"testing"
	"time"

	"linkprobe/internal/db"
	"linkprobe/internal/model"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	database, err := db.Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close(database) })

	return New(database)
}

func testConfig(id string) model.Config {
	return model.Config{
		ID:       id,
		Raw:      "vless://u@h:443#" + id,
		Protocol: model.ProtocolVLESS,
		Server:   "h",
		Port:     443,
		Name:     id,
	}
}

func TestReplaceConfigs(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	if err := st.ReplaceConfigs([]model.Config{testConfig("a"), testConfig("b")}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	// A second fetch replaces everything from the first.
	if err := st.ReplaceConfigs([]model.Config{testConfig("c")}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	configs, err := st.Configs()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(configs) != 1 || configs[0].ID != "c" {
		t.Fatalf("unexpected configs: %+v", configs)
	}
}

func TestReplaceConfigsEmptyWipes(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	if err := st.ReplaceConfigs([]model.Config{testConfig("a")}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if err := st.ReplaceConfigs(nil); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	configs, err := st.Configs()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(configs) != 0 {
		t.Fatalf("expected empty table, got %d", len(configs))
	}
}

func TestUpsertResultOverwrites(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	first := model.Result{
		ConfigID: "x", Protocol: model.ProtocolTrojan, Server: "h", Port: 1,
		Success: false, LatencyMs: -1, TestedAt: time.Now().UTC(),
	}
	if err := st.UpsertResult(first); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	second := first
	second.Success = true
	second.LatencyMs = 42.5
	if err := st.UpsertResult(second); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	results, err := st.ResultsByLatency(10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one row after overwrite, got %d", len(results))
	}
	if !results[0].Success || results[0].LatencyMs != 42.5 {
		t.Fatalf("overwrite did not apply: %+v", results[0])
	}
}

func TestResultsByLatencyFiltersAndSorts(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	rows := []model.Result{
		{ConfigID: "slow", Success: true, LatencyMs: 300.2, TestedAt: time.Now().UTC()},
		{ConfigID: "fast", Success: true, LatencyMs: 12.1, TestedAt: time.Now().UTC()},
		{ConfigID: "dead", Success: false, LatencyMs: -1, TestedAt: time.Now().UTC()},
		{ConfigID: "mid", Success: true, LatencyMs: 88.8, TestedAt: time.Now().UTC()},
	}
	for _, r := range rows {
		if err := st.UpsertResult(r); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	results, err := st.ResultsByLatency(10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("failed probes must be filtered out, got %d rows", len(results))
	}
	for i, want := range []string{"fast", "mid", "slow"} {
		if results[i].ConfigID != want {
			t.Fatalf("row %d: got %s, want %s", i, results[i].ConfigID, want)
		}
	}
}

func TestClear(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	if err := st.ReplaceConfigs([]model.Config{testConfig("a")}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if err := st.UpsertResult(model.Result{ConfigID: "a", Success: true, LatencyMs: 1, TestedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := st.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	configs, _ := st.Configs()
	results, _ := st.ResultsByLatency(10)
	if len(configs) != 0 || len(results) != 0 {
		t.Fatalf("tables not empty after clear: %d configs, %d results", len(configs), len(results))
	}
}
