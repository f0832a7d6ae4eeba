// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-agent/internal/agent"
	"loyalty-agent/internal/api"
	"loyalty-agent/internal/common/config"
	"loyalty-agent/internal/common/database"
	commonhttp "loyalty-agent/internal/common/http"
	"loyalty-agent/internal/common/logger"
	"loyalty-agent/internal/datagen"
	"loyalty-agent/internal/memory"
	"loyalty-agent/internal/registry"
	"loyalty-agent/internal/store"
	agentmeta "loyalty-agent/pkg/registry"
)

const (
	numCustomers    = 200
	numTransactions = 2000
)

// TestEnvironment is one running agent with its collaborators.
type TestEnvironment struct {
	Config     *config.Config
	Store      *store.Store
	Memory     *memory.Manager
	Redis      *miniredis.Miniredis
	Supervisor *fakeSupervisor
	Server     *httptest.Server
	Client     *commonhttp.Client
}

type fakeSupervisor struct {
	mu         sync.Mutex
	agents     map[string]map[string]interface{}
	heartbeats int
	server     *httptest.Server
}

func newFakeSupervisor(t *testing.T) *fakeSupervisor {
	s := &fakeSupervisor{agents: map[string]map[string]interface{}{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.agents[fmt.Sprint(body["agent_id"])] = body
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /heartbeat", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.heartbeats++
		s.mu.Unlock()
	})
	mux.HandleFunc("DELETE /unregister/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		delete(s.agents, r.PathValue("id"))
		s.mu.Unlock()
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *fakeSupervisor) registered(id string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.agents[id]
	return body, ok
}

func (s *fakeSupervisor) heartbeatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}

// ==========================
// 1. Environment Setup
// ==========================

func setupEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")

	customers, txns := datagen.New(42, time.Now()).Generate(numCustomers, numTransactions)
	require.NoError(t, datagen.WriteFiles(dataDir, customers, txns))

	mr := miniredis.RunT(t)
	supervisor := newFakeSupervisor(t)

	configPath := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
app:
  name: loyalty-agent
  version: 1.0.0
  environment: e2e
data:
  source: file
  customers_file: %s
  transactions_file: %s
memory:
  dir: %s
  short_term_capacity: 50
database:
  redis:
    enabled: true
    address: %s
    ttl: 60000
registry:
  supervisor_url: %s
  heartbeat_interval: 20
logging:
  level: debug
  format: console
`,
		filepath.Join(dataDir, "customers.json"),
		filepath.Join(dataDir, "transactions.json"),
		filepath.Join(root, "memory"),
		mr.Addr(),
		supervisor.server.URL,
	)), 0o644))

	cfg, err := config.LoadFromFile(configPath)
	require.NoError(t, err)

	return startAgent(t, cfg, mr, supervisor)
}

// startAgent wires the process the way cmd/loyalty-agent does.
func startAgent(t *testing.T, cfg *config.Config, mr *miniredis.Miniredis, supervisor *fakeSupervisor) *TestEnvironment {
	t.Helper()
	log := logger.NewTestLogger(t)

	s, err := store.LoadFiles(cfg.Data.CustomersFile, cfg.Data.TransactionsFile)
	require.NoError(t, err)

	redis := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, redis.Ping(context.Background()))
	t.Cleanup(func() { redis.Close() })

	mem := memory.NewManager(cfg.Memory, log, memory.WithMirror(
		memory.NewRedisMirror(redis, cfg.Database.Redis.KeyPrefix, config.GetDuration(cfg.Database.Redis.TTL)),
	))

	lifetime, stop := context.WithCancel(context.Background())
	t.Cleanup(stop)

	meta := agentmeta.DefaultMetadata(cfg.Registry.AgentID, cfg.App.Version, "http://loyalty-agent.e2e")
	regClient := registry.NewClient(meta, commonhttp.NewClient(time.Second), log)
	t.Cleanup(regClient.Stop)

	server := api.NewServer(api.Dependencies{
		Agent:             agent.New(s, log),
		Catalog:           s,
		Memory:            mem,
		Registry:          regClient,
		App:               cfg.App,
		Logger:            log,
		HeartbeatInterval: config.GetDuration(cfg.Registry.HeartbeatInterval),
		Lifetime:          lifetime,
	})
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	return &TestEnvironment{
		Config:     cfg,
		Store:      s,
		Memory:     mem,
		Redis:      mr,
		Supervisor: supervisor,
		Server:     ts,
		Client:     commonhttp.NewClient(5 * time.Second),
	}
}

// ==========================
// 2. Full Journey
// ==========================

func TestFullE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}
	env := setupEnvironment(t)
	ctx := context.Background()

	t.Log("🚀 Starting E2E run against an in-process agent...")

	// --- Health ---
	var health map[string]interface{}
	require.NoError(t, env.Client.GetJSON(ctx, env.Server.URL+"/health", &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(numCustomers), health["customers_loaded"])
	assert.Equal(t, float64(numTransactions), health["transactions_loaded"])
	assert.Equal(t, "e2e", health["environment"])
	t.Log("✅ Health reports loaded data")

	// --- Analyze ---
	ids := env.Store.CustomerIDs()[:10]
	for _, id := range ids {
		var resp map[string]interface{}
		require.NoError(t, env.Client.PostJSON(ctx, env.Server.URL+"/analyze",
			map[string]interface{}{"customer_id": id}, &resp), id)
		assert.Equal(t, id, resp["customer_id"])
		assert.NotEmpty(t, resp["recommended_reward"])
		assert.NotEmpty(t, resp["segment"])

		retention := resp["predicted_retention"].(float64)
		assert.GreaterOrEqual(t, retention, 0.0)
		assert.LessOrEqual(t, retention, 1.0)

		mirrored, err := env.Redis.Get(env.Config.Database.Redis.KeyPrefix + id)
		require.NoError(t, err, id)
		assert.Contains(t, mirrored, id)
	}
	t.Logf("✅ Analyzed %d customers", len(ids))

	var withHistory map[string]interface{}
	require.NoError(t, env.Client.PostJSON(ctx, env.Server.URL+"/analyze",
		map[string]interface{}{"customer_id": ids[0], "include_history": true}, &withHistory))
	assert.Len(t, withHistory["history"], 2)

	err := env.Client.PostJSON(ctx, env.Server.URL+"/analyze", map[string]interface{}{"customer_id": "CUST999999"}, nil)
	var statusErr *commonhttp.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Customer CUST999999 not found")

	// --- Aggregates ---
	var metrics map[string]interface{}
	require.NoError(t, env.Client.GetJSON(ctx, env.Server.URL+"/metrics", &metrics))
	assert.Equal(t, float64(numCustomers), metrics["total_customers"])
	rewards := metrics["reward_recommendations_summary"].(map[string]interface{})
	total := 0.0
	for _, n := range rewards {
		total += n.(float64)
	}
	assert.Equal(t, float64(len(ids)), total)
	t.Log("✅ Metrics aggregate the cached recommendations")

	var atRisk map[string]interface{}
	require.NoError(t, env.Client.GetJSON(ctx, env.Server.URL+"/customers/at-risk?threshold=0.5&min_ltv=0", &atRisk))
	results := atRisk["results"].([]interface{})
	for i := 1; i < len(results); i++ {
		prev := results[i-1].(map[string]interface{})["kpis"].(map[string]interface{})["lifetime_value"].(float64)
		cur := results[i].(map[string]interface{})["kpis"].(map[string]interface{})["lifetime_value"].(float64)
		assert.GreaterOrEqual(t, prev, cur)
	}

	// --- Registration ---
	var reg map[string]interface{}
	require.NoError(t, env.Client.PostJSON(ctx, env.Server.URL+"/register", map[string]interface{}{
		"supervisor_url": env.Supervisor.server.URL,
		"agent_metadata": map[string]interface{}{"region": "e2e"},
	}, &reg))
	assert.Equal(t, "registered", reg["status"])

	body, ok := env.Supervisor.registered(env.Config.Registry.AgentID)
	require.True(t, ok)
	assert.Equal(t, "e2e", body["region"])
	assert.Eventually(t, func() bool { return env.Supervisor.heartbeatCount() > 0 }, 2*time.Second, 10*time.Millisecond)
	t.Log("✅ Registered with supervisor and heartbeating")

	// --- History & persistence ---
	var history map[string]interface{}
	require.NoError(t, env.Client.GetJSON(ctx, fmt.Sprintf("%s/customers/%s/history?limit=1", env.Server.URL, ids[0]), &history))
	assert.Equal(t, 1.0, history["count"])

	assert.Equal(t, len(ids), env.Memory.PersistAll())

	reopened := memory.NewManager(env.Config.Memory, logger.NewTestLogger(t))
	assert.Len(t, reopened.History(ids[0], 0), 3, "two analyses plus the persisted cache entry")
	assert.Equal(t, len(ids), reopened.Stats().LongTerm.TotalCustomers)

	t.Log("✅ ALL TESTS PASSED: full E2E journey successful")
}

// ==========================
// 3. Degraded Start
// ==========================

func TestDegradedStart(t *testing.T) {
	dir := t.TempDir()
	_, err := store.LoadFiles(filepath.Join(dir, "missing.json"), filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	server := api.NewServer(api.Dependencies{
		Memory: memory.NewManager(config.MemoryConfig{Dir: dir, LongTermFile: "ltm.json", ShortTermCapacity: 5}, logger.NewTestLogger(t)),
		App:    config.AppConfig{Version: "1.0.0", Environment: "e2e"},
		Logger: logger.NewTestLogger(t),
	})
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	client := commonhttp.NewClient(time.Second)
	var health map[string]interface{}
	require.NoError(t, client.GetJSON(context.Background(), ts.URL+"/health", &health))
	assert.Equal(t, "degraded", health["status"])

	err = client.PostJSON(context.Background(), ts.URL+"/analyze", map[string]string{"customer_id": "CUST000001"}, nil)
	var statusErr *commonhttp.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}
