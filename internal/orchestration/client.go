// Package orchestration reconciles workflow definitions against an external
// orchestrator. The orchestrator itself is a remote service reached through
// the Client interface; this package only drives it to convergence.
package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/stackplane/stackplane/infra"
)

// ErrNotFound signals a terminate call against a workflow the orchestrator
// does not know. Expected during reconciliation and never fatal.
var ErrNotFound = errors.New("workflow not found")

// RunInfo describes a started workflow run.
type RunInfo struct {
	WorkflowName string `json:"workflow_name"`
	RunID        string `json:"run_id"`
}

// TerminationInfo describes a terminated workflow.
type TerminationInfo struct {
	WorkflowName string `json:"workflow_name"`
}

// Client is the boundary to the external orchestrator.
type Client interface {
	Terminate(ctx context.Context, name string) (*TerminationInfo, error)
	Start(ctx context.Context, workflow infra.Workflow) (*RunInfo, error)
}

// HTTPClient talks to the orchestrator's management API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client for the given management endpoint.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Terminate(ctx context.Context, name string) (*TerminationInfo, error) {
	endpoint := fmt.Sprintf("%s/workflows/%s/terminate", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("terminate %q: %w", name, ErrNotFound)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("terminate %q: orchestrator returned %d: %s", name, resp.StatusCode, body)
	}
	return &TerminationInfo{WorkflowName: name}, nil
}

func (c *HTTPClient) Start(ctx context.Context, workflow infra.Workflow) (*RunInfo, error) {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/workflows/%s/start", c.baseURL, url.PathEscape(workflow.Name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("start %q: orchestrator returned %d: %s", workflow.Name, resp.StatusCode, body)
	}

	var info RunInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("start %q: failed to decode run info: %w", workflow.Name, err)
	}
	if info.WorkflowName == "" {
		info.WorkflowName = workflow.Name
	}
	return &info, nil
}
