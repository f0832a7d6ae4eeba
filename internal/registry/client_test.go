package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "loyalty-agent/internal/common/errors"
	commonhttp "loyalty-agent/internal/common/http"
	"loyalty-agent/internal/common/logger"
	"loyalty-agent/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake supervisor
// ==========================

type supervisor struct {
	mu           sync.Mutex
	registered   map[string]interface{}
	heartbeats   int
	unregistered string
	failRegister bool
}

func (s *supervisor) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failRegister {
			http.Error(w, "registry full", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&s.registered)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /heartbeat", func(w http.ResponseWriter, r *http.Request) {
		var hb map[string]string
		_ = json.NewDecoder(r.Body).Decode(&hb)
		s.mu.Lock()
		if hb["agent_id"] == "loyalty_agent_001" && hb["status"] == "active" {
			s.heartbeats++
		}
		s.mu.Unlock()
	})
	mux.HandleFunc("DELETE /unregister/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.unregistered = r.PathValue("id")
		s.mu.Unlock()
	})
	mux.HandleFunc("GET /agents", func(w http.ResponseWriter, r *http.Request) {
		agents := []registry.AgentInfo{
			{AgentID: "loyalty_agent_001", AgentType: "loyalty_optimization"},
			{AgentID: "pricing_agent_001", AgentType: "pricing"},
		}
		if typ := r.URL.Query().Get("type"); typ != "" {
			filtered := agents[:0]
			for _, a := range agents {
				if a.AgentType == typ {
					filtered = append(filtered, a)
				}
			}
			agents = filtered
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"agents": agents})
	})
	return mux
}

func (s *supervisor) lastRegistration() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered
}

func (s *supervisor) heartbeatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}

func setup(t *testing.T) (*Client, *supervisor, string) {
	t.Helper()
	sup := &supervisor{}
	srv := httptest.NewServer(sup.handler())
	t.Cleanup(srv.Close)

	meta := registry.DefaultMetadata("loyalty_agent_001", "1.0.0", "http://agent.local:8000")
	c := NewClient(meta, commonhttp.NewClient(time.Second), logger.NewTestLogger(t))
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c, sup, srv.URL
}

// ==========================
// Registration
// ==========================

func TestRegister(t *testing.T) {
	c, sup, url := setup(t)

	reg, err := c.Register(context.Background(), url+"/", map[string]interface{}{"region": "eu-west", "version": "1.1.0"})
	require.NoError(t, err)

	assert.Equal(t, "registered", reg.Status)
	assert.Equal(t, "loyalty_agent_001", reg.AgentID)
	assert.Equal(t, url, reg.SupervisorURL)
	assert.Equal(t, "2025-06-01T12:00:00Z", reg.RegisteredAt)
	assert.Equal(t, "Agent successfully registered with supervisor at "+url, reg.Message)
	assert.True(t, c.Registered())

	body := sup.lastRegistration()
	assert.Equal(t, "eu-west", body["region"])
	assert.Equal(t, "1.1.0", body["version"], "extra metadata wins")
	assert.Equal(t, "Customer Loyalty AI Agent", body["agent_name"])
	assert.Equal(t, "2025-06-01T12:00:00Z", body["registration_time"])
	assert.Len(t, body["capabilities"], 5)

	meta := c.Metadata()
	assert.Equal(t, "active", meta.Status)
	assert.Equal(t, "2025-06-01T12:00:00Z", meta.RegisteredAt)
}

func TestRegister_Failure(t *testing.T) {
	c, sup, url := setup(t)
	sup.mu.Lock()
	sup.failRegister = true
	sup.mu.Unlock()

	_, err := c.Register(context.Background(), url, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRegistrationFailed, apperrors.AsStandardError(err).Code)
	assert.False(t, c.Registered())
	assert.Equal(t, "inactive", c.Metadata().Status)
}

func TestRegister_Unreachable(t *testing.T) {
	c, _, _ := setup(t)
	_, err := c.Register(context.Background(), "http://127.0.0.1:1", nil)
	require.Error(t, err)
	assert.True(t, apperrors.AsStandardError(err).Retryable)
}

func TestCallsRequireRegistration(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	assert.Error(t, c.Heartbeat(ctx))
	assert.Error(t, c.Deregister(ctx))
	_, err := c.Discover(ctx, "")
	assert.Error(t, err)
}

// ==========================
// Heartbeat & deregistration
// ==========================

func TestHeartbeatLoop(t *testing.T) {
	c, sup, url := setup(t)
	ctx := context.Background()
	_, err := c.Register(ctx, url, nil)
	require.NoError(t, err)

	require.NoError(t, c.Heartbeat(ctx))
	assert.Equal(t, 1, sup.heartbeatCount())

	c.StartHeartbeat(ctx, 10*time.Millisecond)
	c.StartHeartbeat(ctx, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return sup.heartbeatCount() >= 3 }, time.Second, 5*time.Millisecond)

	c.Stop()
	stopped := sup.heartbeatCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, sup.heartbeatCount())

	c.Stop()
}

func TestDeregister(t *testing.T) {
	c, sup, url := setup(t)
	ctx := context.Background()
	_, err := c.Register(ctx, url, nil)
	require.NoError(t, err)
	c.StartHeartbeat(ctx, time.Hour)

	require.NoError(t, c.Deregister(ctx))
	sup.mu.Lock()
	assert.Equal(t, "loyalty_agent_001", sup.unregistered)
	sup.mu.Unlock()
	assert.False(t, c.Registered())
	assert.Error(t, c.Heartbeat(ctx))
}

func TestDiscover(t *testing.T) {
	c, _, url := setup(t)
	ctx := context.Background()
	_, err := c.Register(ctx, url, nil)
	require.NoError(t, err)

	all, err := c.Discover(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pricing, err := c.Discover(ctx, "pricing")
	require.NoError(t, err)
	require.Len(t, pricing, 1)
	assert.Equal(t, "pricing_agent_001", pricing[0].AgentID)
}
