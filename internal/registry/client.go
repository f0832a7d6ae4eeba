// internal/registry/client.go
package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"loyalty-agent/internal/common/errors"
	commonhttp "loyalty-agent/internal/common/http"
	"loyalty-agent/internal/common/logger"
	"loyalty-agent/pkg/registry"
)

var errNotRegistered = fmt.Errorf("agent is not registered")

// Registration is the outcome of a successful Register call.
type Registration struct {
	Status        string `json:"status"`
	AgentID       string `json:"agent_id"`
	SupervisorURL string `json:"supervisor_url"`
	RegisteredAt  string `json:"registered_at"`
	Message       string `json:"message"`
}

// Client registers the agent with a supervisor and keeps it alive with
// heartbeats.
type Client struct {
	metadata *registry.AgentMetadata
	http     *commonhttp.Client
	logger   logger.Logger
	now      func() time.Time

	mu            sync.Mutex
	supervisorURL string
	registeredAt  time.Time
	stopHeartbeat context.CancelFunc
	heartbeatDone chan struct{}
}

func NewClient(metadata *registry.AgentMetadata, httpClient *commonhttp.Client, log logger.Logger) *Client {
	return &Client{
		metadata: metadata,
		http:     httpClient,
		logger:   log.WithFields(map[string]interface{}{"component": "registry", "agentId": metadata.AgentID}),
		now:      time.Now,
	}
}

// Register posts the agent metadata, with extra laid over it, to
// supervisorURL/register.
func (c *Client) Register(ctx context.Context, supervisorURL string, extra map[string]interface{}) (*Registration, error) {
	supervisorURL = strings.TrimRight(supervisorURL, "/")

	payload, err := c.metadata.Merge(extra)
	if err != nil {
		return nil, errors.NewRegistrationError(supervisorURL, err)
	}
	now := c.now()
	payload["registration_time"] = now.Format(time.RFC3339)

	c.logger.Info("registering with supervisor", map[string]interface{}{"supervisorUrl": supervisorURL})
	if err := c.http.PostJSON(ctx, supervisorURL+"/register", payload, nil); err != nil {
		c.logger.Error("registration failed", map[string]interface{}{
			"supervisorUrl": supervisorURL,
			"error":         err.Error(),
		})
		return nil, errors.NewRegistrationError(supervisorURL, err)
	}

	c.mu.Lock()
	c.supervisorURL = supervisorURL
	c.registeredAt = now
	c.mu.Unlock()

	c.logger.Info("registered with supervisor", map[string]interface{}{"supervisorUrl": supervisorURL})
	return &Registration{
		Status:        "registered",
		AgentID:       c.metadata.AgentID,
		SupervisorURL: supervisorURL,
		RegisteredAt:  now.Format(time.RFC3339),
		Message:       fmt.Sprintf("Agent successfully registered with supervisor at %s", supervisorURL),
	}, nil
}

// Registered reports whether the last Register succeeded and no Deregister
// followed.
func (c *Client) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supervisorURL != ""
}

// Metadata returns a copy of the advertised metadata with the current
// registration status filled in.
func (c *Client) Metadata() registry.AgentMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := *c.metadata
	m.Status = "inactive"
	if c.supervisorURL != "" {
		m.Status = "active"
		m.RegisteredAt = c.registeredAt.Format(time.RFC3339)
	}
	return m
}

func (c *Client) supervisor() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.supervisorURL == "" {
		return "", errors.NewRegistrationError("", errNotRegistered)
	}
	return c.supervisorURL, nil
}

// Heartbeat tells the supervisor the agent is still active.
func (c *Client) Heartbeat(ctx context.Context) error {
	sup, err := c.supervisor()
	if err != nil {
		return err
	}
	payload := map[string]interface{}{
		"agent_id":  c.metadata.AgentID,
		"timestamp": c.now().Format(time.RFC3339),
		"status":    "active",
	}
	if err := c.http.PostJSON(ctx, sup+"/heartbeat", payload, nil); err != nil {
		return errors.NewRegistrationError(sup, err)
	}
	return nil
}

// StartHeartbeat sends a heartbeat every interval until ctx is canceled or
// Stop is called. Failures are logged and the loop keeps going.
func (c *Client) StartHeartbeat(ctx context.Context, interval time.Duration) {
	c.mu.Lock()
	if c.stopHeartbeat != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.stopHeartbeat = cancel
	c.heartbeatDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Heartbeat(ctx); err != nil && ctx.Err() == nil {
					c.logger.Warn("heartbeat failed", map[string]interface{}{"error": err.Error()})
				}
			}
		}
	}()
	c.logger.Info("heartbeat started", map[string]interface{}{"interval": interval.String()})
}

// Stop ends the heartbeat loop and waits for it to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.stopHeartbeat, c.heartbeatDone
	c.stopHeartbeat, c.heartbeatDone = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Info("heartbeat stopped", nil)
}

// Deregister stops the heartbeat and removes the agent from the supervisor.
func (c *Client) Deregister(ctx context.Context) error {
	sup, err := c.supervisor()
	if err != nil {
		return err
	}
	c.Stop()

	if err := c.http.Delete(ctx, sup+"/unregister/"+url.PathEscape(c.metadata.AgentID)); err != nil {
		return errors.NewRegistrationError(sup, err)
	}

	c.mu.Lock()
	c.supervisorURL = ""
	c.registeredAt = time.Time{}
	c.mu.Unlock()

	c.logger.Info("deregistered from supervisor", map[string]interface{}{"supervisorUrl": sup})
	return nil
}

// Discover lists the agents the supervisor knows about, optionally filtered
// by agent type.
func (c *Client) Discover(ctx context.Context, agentType string) ([]registry.AgentInfo, error) {
	sup, err := c.supervisor()
	if err != nil {
		return nil, err
	}
	endpoint := sup + "/agents"
	if agentType != "" {
		endpoint += "?" + url.Values{"type": {agentType}}.Encode()
	}

	var resp struct {
		Agents []registry.AgentInfo `json:"agents"`
	}
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, errors.NewRegistrationError(sup, err)
	}
	return resp.Agents, nil
}
