// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultMetadata describes an agent served at apiURL.
func DefaultMetadata(agentID, version, apiURL string) *AgentMetadata {
	m := &AgentMetadata{
		AgentID:   agentID,
		AgentName: "Customer Loyalty AI Agent",
		AgentType: "loyalty_optimization",
		Version:   version,
		Capabilities: []string{
			CapabilitySegmentation,
			CapabilityChurn,
			CapabilityRewards,
			CapabilityRFM,
			CapabilityScoring,
		},
		CommunicationProtocol: "HTTP/REST",
		DataFormat:            "JSON",
	}
	m.SetAPIURL(apiURL)
	return m
}

// SetAPIURL points the metadata, endpoints included, at apiURL.
func (m *AgentMetadata) SetAPIURL(apiURL string) {
	apiURL = strings.TrimRight(apiURL, "/")
	m.APIURL = apiURL
	m.Endpoints = map[string]string{
		"analyze": apiURL + "/analyze",
		"health":  apiURL + "/health",
		"metrics": apiURL + "/metrics",
	}
}

func LoadMetadata(path string) (*AgentMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m AgentMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

func SaveMetadata(path string, m *AgentMetadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate returns one message per missing required field.
func (m *AgentMetadata) Validate() []string {
	var problems []string
	required := map[string]string{
		"agent_id":   m.AgentID,
		"agent_name": m.AgentName,
		"agent_type": m.AgentType,
		"version":    m.Version,
		"api_url":    m.APIURL,
	}
	for _, field := range []string{"agent_id", "agent_name", "agent_type", "version", "api_url"} {
		if strings.TrimSpace(required[field]) == "" {
			problems = append(problems, field+" is required")
		}
	}
	if len(m.Capabilities) == 0 {
		problems = append(problems, "at least one capability is required")
	}
	seen := make(map[string]bool, len(m.Capabilities))
	for _, c := range m.Capabilities {
		if seen[c] {
			problems = append(problems, "duplicate capability "+c)
		}
		seen[c] = true
	}
	return problems
}

// Merge returns the metadata as a JSON object with extra's members laid over
// it. extra wins on conflicts.
func (m *AgentMetadata) Merge(extra map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, v := range extra {
		out[k] = v
	}
	return out, nil
}
