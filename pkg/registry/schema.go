// pkg/registry/schema.go
package registry

// Capabilities advertised by the loyalty agent.
const (
	CapabilitySegmentation = "customer_segmentation"
	CapabilityChurn        = "churn_prediction"
	CapabilityRewards      = "reward_optimization"
	CapabilityRFM          = "rfm_analysis"
	CapabilityScoring      = "loyalty_scoring"
)

// AgentMetadata is the document a supervisor receives on registration.
type AgentMetadata struct {
	AgentID               string            `json:"agent_id"`
	AgentName             string            `json:"agent_name"`
	AgentType             string            `json:"agent_type"`
	Version               string            `json:"version"`
	APIURL                string            `json:"api_url"`
	Capabilities          []string          `json:"capabilities"`
	Endpoints             map[string]string `json:"endpoints"`
	CommunicationProtocol string            `json:"communication_protocol"`
	DataFormat            string            `json:"data_format"`
	Status                string            `json:"status,omitempty"`
	RegisteredAt          string            `json:"registered_at,omitempty"`
	LastHeartbeat         string            `json:"last_heartbeat,omitempty"`
}

// AgentInfo is a peer as listed by the supervisor's discovery endpoint.
type AgentInfo struct {
	AgentID      string   `json:"agent_id"`
	AgentName    string   `json:"agent_name"`
	AgentType    string   `json:"agent_type"`
	APIURL       string   `json:"api_url"`
	Capabilities []string `json:"capabilities"`
	Status       string   `json:"status"`
}
