package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMetadata(t *testing.T) {
	m := DefaultMetadata("loyalty_agent_001", "1.0.0", "http://localhost:8000/")

	assert.Equal(t, "http://localhost:8000", m.APIURL)
	assert.Equal(t, "http://localhost:8000/analyze", m.Endpoints["analyze"])
	assert.Equal(t, "http://localhost:8000/health", m.Endpoints["health"])
	assert.Equal(t, "http://localhost:8000/metrics", m.Endpoints["metrics"])
	assert.Contains(t, m.Capabilities, CapabilityRFM)
	assert.Empty(t, m.Validate())
}

func TestSaveAndLoadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-metadata.json")
	m := DefaultMetadata("loyalty_agent_002", "2.0.0", "http://agent:8000")

	require.NoError(t, SaveMetadata(path, m))
	loaded, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)

	_, err = LoadMetadata(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	m := &AgentMetadata{Capabilities: []string{CapabilityRFM, CapabilityRFM}}
	problems := m.Validate()

	assert.Equal(t, []string{
		"agent_id is required",
		"agent_name is required",
		"agent_type is required",
		"version is required",
		"api_url is required",
		"duplicate capability rfm_analysis",
	}, problems)

	assert.Contains(t, (&AgentMetadata{}).Validate(), "at least one capability is required")
}

func TestMerge(t *testing.T) {
	m := DefaultMetadata("a", "1.0.0", "http://x")
	merged, err := m.Merge(map[string]interface{}{"agent_name": "Renamed", "zone": 3})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", merged["agent_name"])
	assert.Equal(t, 3, merged["zone"])
	assert.Equal(t, "a", merged["agent_id"])
	assert.NotContains(t, merged, "status", "empty status is omitted")
	assert.Equal(t, "Customer Loyalty AI Agent", m.AgentName, "receiver is untouched")
}
