package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"agent-gateway/internal/credential"
)

// AgentClient is an SDK-style client object bound to one knowledge agent. It
// speaks the agent-scoped routes with typed request and response shapes, as
// opposed to RESTClient's untyped JSON. Both implement Retriever and behave
// identically from the caller's point of view.
type AgentClient struct {
	Endpoint   string
	AgentName  string
	APIVersion string
	client     *http.Client
}

// NewAgentClient creates a client for the given agent resource.
func NewAgentClient(endpoint, agentName, apiVersion string, timeout time.Duration) *AgentClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AgentClient{
		Endpoint:   endpoint,
		AgentName:  agentName,
		APIVersion: apiVersion,
		client:     &http.Client{Timeout: timeout},
	}
}

// RetrievalRequest is the typed request for the agent routes.
type RetrievalRequest struct {
	Messages          []AgentMessage `json:"messages"`
	TargetIndexParams []IndexParams  `json:"targetIndexParams,omitempty"`
	CitationFieldName string         `json:"citationFieldName,omitempty"`
	MaxOutputSize     int            `json:"maxOutputSize,omitempty"`
}

// IndexParams targets one index with a reranker threshold.
type IndexParams struct {
	IndexName         string  `json:"indexName"`
	RerankerThreshold float64 `json:"rerankerThreshold,omitempty"`
}

// retrievalResult is the typed response decoded from the agent routes.
type retrievalResult struct {
	Response   []AgentMessage   `json:"response"`
	References []AgentReference `json:"references"`
	Error      *serviceError    `json:"error"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Retrieve satisfies Retriever. Retrieve-mode requests with a bare query are
// wrapped into the message form the agent routes require.
func (c *AgentClient) Retrieve(ctx context.Context, req Request) (*RawResponse, error) {
	msgs := req.Messages
	if len(msgs) == 0 && req.Query != "" {
		msgs = []Message{
			{Role: RoleAssistant, Content: SynthesisInstruction},
			{Role: RoleUser, Content: req.Query},
		}
	}

	typed := RetrievalRequest{
		Messages:          toAgentMessages(msgs),
		CitationFieldName: "source_file",
		TargetIndexParams: []IndexParams{{
			IndexName:         req.IndexName,
			RerankerThreshold: req.RerankerThreshold,
		}},
	}
	if req.Mode == ModeResponses {
		typed.MaxOutputSize = req.MaxOutputSize
	}

	return c.call(ctx, string(req.Mode), typed, req.Credential)
}

func (c *AgentClient) call(ctx context.Context, route string, typed RetrievalRequest, cred credential.Credential) (*RawResponse, error) {
	if route == "" {
		route = string(ModeRetrieve)
	}
	endpoint := fmt.Sprintf("%s/agents/%s/%s?api-version=%s",
		c.Endpoint, url.PathEscape(c.AgentName), route, url.QueryEscape(c.APIVersion))

	payload, err := json.Marshal(typed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	cred.Apply(httpReq.Header)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	raw := &RawResponse{Status: resp.StatusCode, Header: resp.Header, Body: body}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw.Upstream = &UpstreamError{StatusCode: resp.StatusCode, Body: truncate(body)}
		return raw, nil
	}

	var result retrievalResult
	if err := json.Unmarshal(body, &result); err != nil {
		raw.Upstream = &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    "response does not match the agent schema",
			Body:       truncate(body),
		}
		return raw, nil
	}
	if result.Error != nil {
		raw.Upstream = &UpstreamError{
			StatusCode: resp.StatusCode,
			Code:       result.Error.Code,
			Message:    result.Error.Message,
			Body:       truncate(body),
		}
		return raw, nil
	}

	raw.SDK = &SDKPayload{Response: result.Response, References: result.References}
	return raw, nil
}

func toAgentMessages(msgs []Message) []AgentMessage {
	out := make([]AgentMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, AgentMessage{
			Role:    m.Role,
			Content: []AgentContentItem{{Type: "text", Text: m.Content}},
		})
	}
	return out
}
